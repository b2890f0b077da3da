package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coachd-platform/coachd/internal/schedule"
	"github.com/coachd-platform/coachd/internal/tasks"
	"github.com/coachd-platform/coachd/internal/users"
)

// memoryMessages is an in-memory schedule.Repository mirroring the store's
// conflict semantics: one row per (owner, task, kind, local date), and one
// task-less morning message per (owner, local date).
type memoryMessages struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*schedule.ScheduledMessage
}

func newMemoryMessages() *memoryMessages {
	return &memoryMessages{rows: make(map[uuid.UUID]*schedule.ScheduledMessage)}
}

func (m *memoryMessages) conflicts(msg *schedule.ScheduledMessage) bool {
	for _, row := range m.rows {
		if row.OwnerUserID != msg.OwnerUserID || row.Kind != msg.Kind || row.LocalDate != msg.LocalDate {
			continue
		}
		switch {
		case row.TaskID == nil && msg.TaskID == nil && msg.Kind == schedule.KindMorningMessage:
			return true
		case row.TaskID != nil && msg.TaskID != nil && *row.TaskID == *msg.TaskID:
			return true
		}
	}
	return false
}

func (m *memoryMessages) InsertIfAbsent(_ context.Context, msg *schedule.ScheduledMessage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts(msg) {
		return false, nil
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	clone := *msg
	m.rows[msg.ID] = &clone
	return true, nil
}

func (m *memoryMessages) GetByID(_ context.Context, id uuid.UUID) (*schedule.ScheduledMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func (m *memoryMessages) ListDuePending(_ context.Context, now time.Time, limit int) ([]*schedule.ScheduledMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*schedule.ScheduledMessage
	for _, row := range m.rows {
		if row.Status == schedule.StatusPending && !row.ScheduledFor.After(now) {
			clone := *row
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryMessages) ListUpcomingByOwner(_ context.Context, ownerID uuid.UUID, limit int) ([]*schedule.ScheduledMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*schedule.ScheduledMessage
	for _, row := range m.rows {
		if row.OwnerUserID == ownerID && row.Status == schedule.StatusPending {
			clone := *row
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryMessages) HasForDay(_ context.Context, ownerID uuid.UUID, taskID *uuid.UUID, kind, localDate string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	probe := &schedule.ScheduledMessage{OwnerUserID: ownerID, TaskID: taskID, Kind: kind, LocalDate: localDate}
	return m.conflicts(probe), nil
}

func (m *memoryMessages) Snooze(_ context.Context, id uuid.UUID, until time.Time) error {
	return m.update(id, func(row *schedule.ScheduledMessage) { row.ScheduledFor = until })
}

func (m *memoryMessages) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	return m.update(id, func(row *schedule.ScheduledMessage) {
		row.Status = schedule.StatusSent
		row.SentAt = &at
	})
}

func (m *memoryMessages) MarkFailed(_ context.Context, id uuid.UUID) error {
	return m.update(id, func(row *schedule.ScheduledMessage) { row.Status = schedule.StatusFailed })
}

func (m *memoryMessages) Cancel(_ context.Context, id uuid.UUID) error {
	return m.update(id, func(row *schedule.ScheduledMessage) { row.Status = schedule.StatusCancelled })
}

func (m *memoryMessages) update(id uuid.UUID, apply func(*schedule.ScheduledMessage)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.Status != schedule.StatusPending {
		return errNotPending
	}
	apply(row)
	return nil
}

func (m *memoryMessages) CancelPendingForTaskDay(_ context.Context, ownerID, taskID uuid.UUID, localDate string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, row := range m.rows {
		if row.OwnerUserID == ownerID && row.TaskID != nil && *row.TaskID == taskID &&
			row.LocalDate == localDate && row.Status == schedule.StatusPending {
			row.Status = schedule.StatusCancelled
			n++
		}
	}
	return n, nil
}

func (m *memoryMessages) all() []*schedule.ScheduledMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*schedule.ScheduledMessage
	for _, row := range m.rows {
		clone := *row
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out
}

type fakeUserSource struct {
	users []*users.User
	byID  map[uuid.UUID]*users.User
}

func newFakeUserSource(list ...*users.User) *fakeUserSource {
	byID := make(map[uuid.UUID]*users.User, len(list))
	for _, u := range list {
		byID[u.ID] = u
	}
	return &fakeUserSource{users: list, byID: byID}
}

func (f *fakeUserSource) ListActiveWithTimezone(context.Context) ([]*users.User, error) {
	return f.users, nil
}

func (f *fakeUserSource) GetByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	return f.byID[id], nil
}

type fakeTaskSource struct {
	byOwner map[uuid.UUID][]*tasks.Task
	events  map[uuid.UUID][]*tasks.Event
}

func newFakeTaskSource() *fakeTaskSource {
	return &fakeTaskSource{
		byOwner: make(map[uuid.UUID][]*tasks.Task),
		events:  make(map[uuid.UUID][]*tasks.Event),
	}
}

func (f *fakeTaskSource) add(ownerID uuid.UUID, task *tasks.Task) {
	f.byOwner[ownerID] = append(f.byOwner[ownerID], task)
}

func (f *fakeTaskSource) addEvent(taskID uuid.UUID, kind string, at time.Time) {
	f.events[taskID] = append(f.events[taskID], &tasks.Event{TaskID: taskID, Kind: kind, OccurredAt: at})
}

func (f *fakeTaskSource) ListActiveScheduled(_ context.Context, ownerID uuid.UUID) ([]*tasks.Task, error) {
	return f.byOwner[ownerID], nil
}

func (f *fakeTaskSource) EventExistsInRange(_ context.Context, taskID uuid.UUID, kind string, from, to time.Time) (bool, error) {
	for _, event := range f.events[taskID] {
		if event.Kind == kind && !event.OccurredAt.Before(from) && event.OccurredAt.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

var errNotPending = errors.New("scheduled message not pending")
