package schedule

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachd-platform/coachd/internal/users"
)

type stubSchedules struct {
	byKey map[string]*DailySchedule
	items map[uuid.UUID][]*ScheduleItem
}

func newStubSchedules() *stubSchedules {
	return &stubSchedules{
		byKey: make(map[string]*DailySchedule),
		items: make(map[uuid.UUID][]*ScheduleItem),
	}
}

func (s *stubSchedules) key(ownerID uuid.UUID, date string) string {
	return ownerID.String() + "/" + date
}

func (s *stubSchedules) GetByOwnerDate(_ context.Context, ownerID uuid.UUID, date string) (*DailySchedule, error) {
	sched, ok := s.byKey[s.key(ownerID, date)]
	if !ok {
		return nil, nil
	}
	clone := *sched
	return &clone, nil
}

func (s *stubSchedules) UpsertDraft(ctx context.Context, ownerID uuid.UUID, date string) (*DailySchedule, error) {
	if _, ok := s.byKey[s.key(ownerID, date)]; !ok {
		s.byKey[s.key(ownerID, date)] = &DailySchedule{
			ID:          uuid.New(),
			OwnerUserID: ownerID,
			Date:        date,
			Status:      ScheduleDraft,
		}
	}
	return s.GetByOwnerDate(ctx, ownerID, date)
}

func (s *stubSchedules) ReplaceItems(_ context.Context, scheduleID uuid.UUID, items []*ScheduleItem) error {
	s.items[scheduleID] = items
	return nil
}

func (s *stubSchedules) ListItems(_ context.Context, scheduleID uuid.UUID) ([]*ScheduleItem, error) {
	return s.items[scheduleID], nil
}

func (s *stubSchedules) Confirm(_ context.Context, scheduleID uuid.UUID) error {
	for _, sched := range s.byKey {
		if sched.ID == scheduleID {
			sched.Status = ScheduleConfirmed
		}
	}
	return nil
}

// stubMessages mirrors the store's uniqueness rules: one row per (owner,
// task, kind, local date) for task rows, one task-less morning message per
// (owner, local date). Task-less notification kinds may repeat.
type stubMessages struct {
	rows map[uuid.UUID]*ScheduledMessage
}

func newStubMessages() *stubMessages {
	return &stubMessages{rows: make(map[uuid.UUID]*ScheduledMessage)}
}

func (m *stubMessages) InsertIfAbsent(_ context.Context, msg *ScheduledMessage) (bool, error) {
	for _, row := range m.rows {
		if row.OwnerUserID != msg.OwnerUserID || row.Kind != msg.Kind || row.LocalDate != msg.LocalDate {
			continue
		}
		switch {
		case row.TaskID == nil && msg.TaskID == nil && msg.Kind == KindMorningMessage:
			return false, nil
		case row.TaskID != nil && msg.TaskID != nil && *row.TaskID == *msg.TaskID:
			return false, nil
		}
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	clone := *msg
	m.rows[msg.ID] = &clone
	return true, nil
}

func (m *stubMessages) GetByID(_ context.Context, id uuid.UUID) (*ScheduledMessage, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func (m *stubMessages) ListDuePending(context.Context, time.Time, int) ([]*ScheduledMessage, error) {
	return nil, nil
}

func (m *stubMessages) ListUpcomingByOwner(_ context.Context, ownerID uuid.UUID, _ int) ([]*ScheduledMessage, error) {
	var out []*ScheduledMessage
	for _, row := range m.rows {
		if row.OwnerUserID == ownerID && row.Status == StatusPending {
			clone := *row
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (m *stubMessages) HasForDay(context.Context, uuid.UUID, *uuid.UUID, string, string) (bool, error) {
	return false, nil
}

func (m *stubMessages) Snooze(_ context.Context, id uuid.UUID, until time.Time) error {
	m.rows[id].ScheduledFor = until
	return nil
}

func (m *stubMessages) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	m.rows[id].Status = StatusSent
	m.rows[id].SentAt = &at
	return nil
}

func (m *stubMessages) MarkFailed(_ context.Context, id uuid.UUID) error {
	m.rows[id].Status = StatusFailed
	return nil
}

func (m *stubMessages) Cancel(_ context.Context, id uuid.UUID) error {
	m.rows[id].Status = StatusCancelled
	return nil
}

func (m *stubMessages) CancelPendingForTaskDay(context.Context, uuid.UUID, uuid.UUID, string) (int64, error) {
	return 0, nil
}

func TestApplyFinalKeepsRepeatedNotificationKinds(t *testing.T) {
	messages := newStubMessages()
	svc := NewService(newStubSchedules(), messages)
	user := &users.User{ID: uuid.New(), Timezone: "UTC"}
	now := time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC)

	result := Parse("The final schedule is as follows:\n" +
		"- 9:00 AM: Write report\n" +
		"- 10:00 AM: Reminder - check email\n" +
		"- 3:00 PM: Reminder - call the dentist")
	require.NotNil(t, result)
	require.Len(t, result.Notifications, 2)

	sched, err := svc.ApplyFinal(context.Background(), user, now, result)
	require.NoError(t, err)
	assert.Equal(t, ScheduleConfirmed, sched.Status)

	pending, err := messages.ListUpcomingByOwner(context.Background(), user.ID, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, KindReminder, pending[0].Kind)
	assert.Equal(t, KindReminder, pending[1].Kind)
	assert.Equal(t, time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC), pending[0].ScheduledFor)
	assert.Equal(t, time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC), pending[1].ScheduledFor)
}

func TestApplyFinalRejectsConfirmedDay(t *testing.T) {
	svc := NewService(newStubSchedules(), newStubMessages())
	user := &users.User{ID: uuid.New(), Timezone: "UTC"}
	now := time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC)

	result := Parse("The final schedule is as follows:\n- 9:00 AM: Write report")
	require.NotNil(t, result)

	_, err := svc.ApplyFinal(context.Background(), user, now, result)
	require.NoError(t, err)

	_, err = svc.ApplyFinal(context.Background(), user, now, result)
	assert.ErrorIs(t, err, ErrConfirmed)

	_, err = svc.ApplyProposed(context.Background(), user, now, result)
	assert.ErrorIs(t, err, ErrConfirmed)
}
