package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coachd-platform/coachd/internal/metrics"
	"github.com/coachd-platform/coachd/internal/schedule"
	"github.com/coachd-platform/coachd/internal/tasks"
	"github.com/coachd-platform/coachd/internal/users"
)

// ReminderOffset is how far before and after a task's scheduled time the
// pre- and post-reminders fire.
const ReminderOffset = 15 * time.Minute

// UserSource lists the users the scheduler iterates over.
type UserSource interface {
	ListActiveWithTimezone(ctx context.Context) ([]*users.User, error)
}

// TaskSource reads each user's schedulable tasks and their event log.
type TaskSource interface {
	ListActiveScheduled(ctx context.Context, ownerID uuid.UUID) ([]*tasks.Task, error)
	EventExistsInRange(ctx context.Context, taskID uuid.UUID, kind string, from, to time.Time) (bool, error)
}

// Scheduler computes and inserts scheduled messages. Every method is
// idempotent and safe to re-invoke on each tick: the per-day existence
// checks plus the store's conflict handling make double-scheduling a no-op.
type Scheduler struct {
	users          UserSource
	tasks          TaskSource
	messages       schedule.Repository
	morningTime    string // HH:MM in each user's timezone
	followUpBuffer time.Duration
}

func New(userSource UserSource, taskSource TaskSource, messages schedule.Repository,
	morningTime string, followUpBuffer time.Duration) *Scheduler {
	return &Scheduler{
		users:          userSource,
		tasks:          taskSource,
		messages:       messages,
		morningTime:    morningTime,
		followUpBuffer: followUpBuffer,
	}
}

// ScheduleDailyReminders covers tasks without a recurrence pattern: they are
// eligible every day while active.
func (s *Scheduler) ScheduleDailyReminders(ctx context.Context, now time.Time) error {
	return s.forEachUserTask(ctx, now, func(user *users.User, task *tasks.Task) bool {
		return task.Recurrence.IsNone()
	})
}

// ScheduleRecurringTasks covers tasks with a recurrence pattern: they are
// eligible only on days the pattern matches in the user's timezone.
func (s *Scheduler) ScheduleRecurringTasks(ctx context.Context, now time.Time) error {
	return s.forEachUserTask(ctx, now, func(user *users.User, task *tasks.Task) bool {
		if task.Recurrence.IsNone() {
			return false
		}
		return task.Recurrence.OccursOn(now.In(user.Location()))
	})
}

func (s *Scheduler) forEachUserTask(ctx context.Context, now time.Time, eligible func(*users.User, *tasks.Task) bool) error {
	userList, err := s.users.ListActiveWithTimezone(ctx)
	if err != nil {
		return err
	}

	for _, user := range userList {
		taskList, err := s.tasks.ListActiveScheduled(ctx, user.ID)
		if err != nil {
			slog.Error("listing scheduled tasks", "user_id", user.ID, "error", err)
			continue
		}
		for _, task := range taskList {
			if !eligible(user, task) {
				continue
			}
			if err := s.scheduleTaskReminders(ctx, user, task, now); err != nil {
				slog.Error("scheduling task reminders",
					"user_id", user.ID, "task_id", task.ID, "error", err)
			}
		}
	}
	return nil
}

// scheduleTaskReminders inserts the three reminders for one task occurrence.
// The dedup gate skips the task when any reminder kind already exists for
// this local day, regardless of status: a cancelled reminder means the user
// does not want it back.
func (s *Scheduler) scheduleTaskReminders(ctx context.Context, user *users.User, task *tasks.Task, now time.Time) error {
	loc := user.Location()
	localNow := now.In(loc)
	localDate := localNow.Format(time.DateOnly)

	for _, kind := range schedule.ReminderKinds {
		exists, err := s.messages.HasForDay(ctx, user.ID, &task.ID, kind, localDate)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
	}

	instant, err := schedule.ComposeInstant(localNow, task.ScheduledTime, loc)
	if err != nil {
		slog.Warn("task has unparseable scheduled time",
			"task_id", task.ID, "scheduled_time", task.ScheduledTime)
		return nil
	}

	metadata, err := json.Marshal(schedule.ReminderMetadata{
		TaskID:            task.ID,
		TaskTitle:         task.Title,
		TaskScheduledTime: task.ScheduledTime,
	})
	if err != nil {
		return err
	}

	offsets := map[string]time.Duration{
		schedule.KindPreReminder:          -ReminderOffset,
		schedule.KindReminder:             0,
		schedule.KindPostReminderFollowUp: ReminderOffset,
	}
	for _, kind := range schedule.ReminderKinds {
		msg := &schedule.ScheduledMessage{
			ID:           uuid.New(),
			OwnerUserID:  user.ID,
			TaskID:       &task.ID,
			Kind:         kind,
			Status:       schedule.StatusPending,
			ScheduledFor: instant.Add(offsets[kind]),
			LocalDate:    localDate,
			Title:        task.Title,
			Metadata:     metadata,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		inserted, err := s.messages.InsertIfAbsent(ctx, msg)
		if err != nil {
			return err
		}
		if inserted {
			metrics.RemindersScheduledTotal.WithLabelValues(kind).Inc()
		}
	}
	return nil
}

// ScheduleOverdueFollowUps flags tasks whose scheduled time plus the buffer
// has passed today with no follow-up yet and no completed or skipped_today
// event, and schedules one immediate follow-up.
func (s *Scheduler) ScheduleOverdueFollowUps(ctx context.Context, now time.Time) error {
	userList, err := s.users.ListActiveWithTimezone(ctx)
	if err != nil {
		return err
	}

	for _, user := range userList {
		loc := user.Location()
		localNow := now.In(loc)
		localDate := localNow.Format(time.DateOnly)
		todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc)
		tomorrowStart := todayStart.AddDate(0, 0, 1)

		taskList, err := s.tasks.ListActiveScheduled(ctx, user.ID)
		if err != nil {
			slog.Error("listing scheduled tasks", "user_id", user.ID, "error", err)
			continue
		}
		for _, task := range taskList {
			if !task.Recurrence.IsNone() && !task.Recurrence.OccursOn(localNow) {
				continue
			}
			instant, err := schedule.ComposeInstant(localNow, task.ScheduledTime, loc)
			if err != nil {
				continue
			}
			if now.Before(instant.Add(s.followUpBuffer)) {
				continue
			}
			if skip, err := s.followUpSuppressed(ctx, user, task, localDate, todayStart, tomorrowStart); err != nil || skip {
				if err != nil {
					slog.Error("checking follow-up suppression", "task_id", task.ID, "error", err)
				}
				continue
			}

			msg := &schedule.ScheduledMessage{
				ID:           uuid.New(),
				OwnerUserID:  user.ID,
				TaskID:       &task.ID,
				Kind:         schedule.KindFollowUp,
				Status:       schedule.StatusPending,
				ScheduledFor: now,
				LocalDate:    localDate,
				Title:        task.Title,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			inserted, err := s.messages.InsertIfAbsent(ctx, msg)
			if err != nil {
				slog.Error("scheduling follow-up", "task_id", task.ID, "error", err)
				continue
			}
			if inserted {
				metrics.RemindersScheduledTotal.WithLabelValues(schedule.KindFollowUp).Inc()
			}
		}
	}
	return nil
}

func (s *Scheduler) followUpSuppressed(ctx context.Context, user *users.User, task *tasks.Task, localDate string, todayStart, tomorrowStart time.Time) (bool, error) {
	exists, err := s.messages.HasForDay(ctx, user.ID, &task.ID, schedule.KindFollowUp, localDate)
	if err != nil || exists {
		return exists, err
	}
	for _, kind := range []string{tasks.EventCompleted, tasks.EventSkippedToday} {
		found, err := s.tasks.EventExistsInRange(ctx, task.ID, kind, todayStart, tomorrowStart)
		if err != nil || found {
			return found, err
		}
	}
	return false, nil
}

// ScheduleMorningMessages inserts one morning message per user per local
// day, at the configured local time. Days where that time has already passed
// are left alone rather than greeted at the wrong hour.
func (s *Scheduler) ScheduleMorningMessages(ctx context.Context, now time.Time) error {
	userList, err := s.users.ListActiveWithTimezone(ctx)
	if err != nil {
		return err
	}

	for _, user := range userList {
		loc := user.Location()
		localNow := now.In(loc)
		localDate := localNow.Format(time.DateOnly)

		instant, err := schedule.ComposeInstant(localNow, s.morningTime, loc)
		if err != nil {
			return err
		}
		if now.After(instant) {
			continue
		}

		exists, err := s.messages.HasForDay(ctx, user.ID, nil, schedule.KindMorningMessage, localDate)
		if err != nil {
			slog.Error("checking morning message", "user_id", user.ID, "error", err)
			continue
		}
		if exists {
			continue
		}

		msg := &schedule.ScheduledMessage{
			ID:           uuid.New(),
			OwnerUserID:  user.ID,
			Kind:         schedule.KindMorningMessage,
			Status:       schedule.StatusPending,
			ScheduledFor: instant,
			LocalDate:    localDate,
			Title:        "Good morning",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		inserted, err := s.messages.InsertIfAbsent(ctx, msg)
		if err != nil {
			slog.Error("scheduling morning message", "user_id", user.ID, "error", err)
			continue
		}
		if inserted {
			metrics.RemindersScheduledTotal.WithLabelValues(schedule.KindMorningMessage).Inc()
		}
	}
	return nil
}
