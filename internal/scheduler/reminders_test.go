package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachd-platform/coachd/internal/schedule"
	"github.com/coachd-platform/coachd/internal/tasks"
	"github.com/coachd-platform/coachd/internal/users"
)

func newYorkUser(t *testing.T) *users.User {
	t.Helper()
	return &users.User{ID: uuid.New(), Timezone: "America/New_York", Active: true, ChatJID: "sam@coach.local"}
}

func scheduledTask(owner uuid.UUID, title, clock, recurrence string) *tasks.Task {
	pattern, _ := tasks.ParseRecurrence(recurrence)
	return &tasks.Task{
		ID:            uuid.New(),
		OwnerUserID:   owner,
		Title:         title,
		Type:          tasks.TypeRecurring,
		Status:        tasks.StatusActive,
		ScheduledTime: clock,
		Recurrence:    pattern,
	}
}

func newTestScheduler(userSource *fakeUserSource, taskSource *fakeTaskSource, messages *memoryMessages) *Scheduler {
	return New(userSource, taskSource, messages, "08:00", time.Hour)
}

func TestScheduleDailyRemindersInsertsThreeInUserTimezone(t *testing.T) {
	user := newYorkUser(t)
	task := scheduledTask(user.ID, "Draft report", "14:30", "none")
	taskSource := newFakeTaskSource()
	taskSource.add(user.ID, task)
	messages := newMemoryMessages()
	s := newTestScheduler(newFakeUserSource(user), taskSource, messages)

	// 2026-08-24 12:00 UTC is 08:00 in New York (EDT).
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.ScheduleDailyReminders(context.Background(), now))

	rows := messages.all()
	require.Len(t, rows, 3)

	// 14:30 EDT is 18:30 UTC.
	assert.Equal(t, schedule.KindPreReminder, rows[0].Kind)
	assert.Equal(t, time.Date(2026, 8, 24, 18, 15, 0, 0, time.UTC), rows[0].ScheduledFor.UTC())
	assert.Equal(t, schedule.KindReminder, rows[1].Kind)
	assert.Equal(t, time.Date(2026, 8, 24, 18, 30, 0, 0, time.UTC), rows[1].ScheduledFor.UTC())
	assert.Equal(t, schedule.KindPostReminderFollowUp, rows[2].Kind)
	assert.Equal(t, time.Date(2026, 8, 24, 18, 45, 0, 0, time.UTC), rows[2].ScheduledFor.UTC())

	for _, row := range rows {
		assert.Equal(t, "2026-08-24", row.LocalDate)
		assert.Equal(t, schedule.StatusPending, row.Status)
		require.NotNil(t, row.TaskID)
		assert.Equal(t, task.ID, *row.TaskID)
		assert.JSONEq(t,
			`{"task_id":"`+task.ID.String()+`","task_title":"Draft report","task_scheduled_time":"14:30"}`,
			string(row.Metadata))
	}
}

func TestScheduleDailyRemindersIsIdempotent(t *testing.T) {
	user := newYorkUser(t)
	taskSource := newFakeTaskSource()
	taskSource.add(user.ID, scheduledTask(user.ID, "Draft report", "14:30", "none"))
	messages := newMemoryMessages()
	s := newTestScheduler(newFakeUserSource(user), taskSource, messages)

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.ScheduleDailyReminders(context.Background(), now))
	require.NoError(t, s.ScheduleDailyReminders(context.Background(), now))
	require.NoError(t, s.ScheduleDailyReminders(context.Background(), now.Add(30*time.Minute)))

	assert.Len(t, messages.all(), 3)
}

func TestScheduleDailyRemindersSkipsWhenAnyKindExists(t *testing.T) {
	user := newYorkUser(t)
	task := scheduledTask(user.ID, "Draft report", "14:30", "none")
	taskSource := newFakeTaskSource()
	taskSource.add(user.ID, task)
	messages := newMemoryMessages()

	// A cancelled reminder from earlier today still counts for dedup.
	cancelled := &schedule.ScheduledMessage{
		OwnerUserID: user.ID,
		TaskID:      &task.ID,
		Kind:        schedule.KindReminder,
		Status:      schedule.StatusCancelled,
		LocalDate:   "2026-08-24",
	}
	_, err := messages.InsertIfAbsent(context.Background(), cancelled)
	require.NoError(t, err)

	s := newTestScheduler(newFakeUserSource(user), taskSource, messages)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.ScheduleDailyReminders(context.Background(), now))

	assert.Len(t, messages.all(), 1)
}

func TestScheduleRecurringTasksHonorsPattern(t *testing.T) {
	user := newYorkUser(t)
	taskSource := newFakeTaskSource()
	taskSource.add(user.ID, scheduledTask(user.ID, "Gym", "18:00", "weekly:1"))
	messages := newMemoryMessages()
	s := newTestScheduler(newFakeUserSource(user), taskSource, messages)

	// 2026-08-24 is a Monday.
	monday := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.ScheduleRecurringTasks(context.Background(), monday))
	assert.Len(t, messages.all(), 3)

	// Tuesday does not match weekly:1 and schedules nothing new.
	tuesday := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.ScheduleRecurringTasks(context.Background(), tuesday))
	assert.Len(t, messages.all(), 3)
}

func TestSchedulePathsAreDisjoint(t *testing.T) {
	user := newYorkUser(t)
	taskSource := newFakeTaskSource()
	taskSource.add(user.ID, scheduledTask(user.ID, "One-off", "10:00", "none"))
	taskSource.add(user.ID, scheduledTask(user.ID, "Daily habit", "11:00", "daily"))
	messages := newMemoryMessages()
	s := newTestScheduler(newFakeUserSource(user), taskSource, messages)

	now := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.ScheduleDailyReminders(context.Background(), now))
	rows := messages.all()
	require.Len(t, rows, 3)
	assert.Equal(t, "One-off", rows[0].Title)

	require.NoError(t, s.ScheduleRecurringTasks(context.Background(), now))
	assert.Len(t, messages.all(), 6)
}

func TestScheduleOverdueFollowUps(t *testing.T) {
	user := newYorkUser(t)
	task := scheduledTask(user.ID, "Morning run", "06:00", "daily")
	taskSource := newFakeTaskSource()
	taskSource.add(user.ID, task)
	messages := newMemoryMessages()
	s := newTestScheduler(newFakeUserSource(user), taskSource, messages)

	// 06:00 EDT plus the 1h buffer passes at 07:00 EDT = 11:00 UTC.
	beforeBuffer := time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)
	require.NoError(t, s.ScheduleOverdueFollowUps(context.Background(), beforeBuffer))
	assert.Empty(t, messages.all())

	overdue := time.Date(2026, 8, 24, 11, 30, 0, 0, time.UTC)
	require.NoError(t, s.ScheduleOverdueFollowUps(context.Background(), overdue))
	rows := messages.all()
	require.Len(t, rows, 1)
	assert.Equal(t, schedule.KindFollowUp, rows[0].Kind)
	assert.Equal(t, overdue, rows[0].ScheduledFor)

	// Re-running does not double up.
	require.NoError(t, s.ScheduleOverdueFollowUps(context.Background(), overdue.Add(time.Hour)))
	assert.Len(t, messages.all(), 1)
}

func TestScheduleOverdueFollowUpsSuppressedByEvents(t *testing.T) {
	overdue := time.Date(2026, 8, 24, 11, 30, 0, 0, time.UTC)

	for _, kind := range []string{tasks.EventCompleted, tasks.EventSkippedToday} {
		user := newYorkUser(t)
		task := scheduledTask(user.ID, "Morning run", "06:00", "daily")
		taskSource := newFakeTaskSource()
		taskSource.add(user.ID, task)
		taskSource.addEvent(task.ID, kind, overdue.Add(-time.Hour))
		messages := newMemoryMessages()
		s := newTestScheduler(newFakeUserSource(user), taskSource, messages)

		require.NoError(t, s.ScheduleOverdueFollowUps(context.Background(), overdue))
		assert.Empty(t, messages.all(), "follow-up should be suppressed by %s event", kind)
	}
}

func TestScheduleMorningMessages(t *testing.T) {
	user := newYorkUser(t)
	messages := newMemoryMessages()
	s := newTestScheduler(newFakeUserSource(user), newFakeTaskSource(), messages)

	// 04:00 EDT, before the 08:00 morning slot.
	early := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.ScheduleMorningMessages(context.Background(), early))
	rows := messages.all()
	require.Len(t, rows, 1)
	assert.Equal(t, schedule.KindMorningMessage, rows[0].Kind)
	assert.Equal(t, time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC), rows[0].ScheduledFor.UTC())
	assert.Nil(t, rows[0].TaskID)

	// Second pass is a no-op.
	require.NoError(t, s.ScheduleMorningMessages(context.Background(), early.Add(10*time.Minute)))
	assert.Len(t, messages.all(), 1)
}

func TestScheduleMorningMessagesSkipsPastSlot(t *testing.T) {
	user := newYorkUser(t)
	messages := newMemoryMessages()
	s := newTestScheduler(newFakeUserSource(user), newFakeTaskSource(), messages)

	// 09:00 EDT, after the morning slot has passed.
	late := time.Date(2026, 8, 24, 13, 0, 0, 0, time.UTC)
	require.NoError(t, s.ScheduleMorningMessages(context.Background(), late))
	assert.Empty(t, messages.all())
}
