package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo   Repository
	events EventRepository
}

func NewService(repo Repository, events EventRepository) *Service {
	return &Service{repo: repo, events: events}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req *CreateTaskRequest) (*Task, error) {
	recurrence, err := ParseRecurrence(req.Recurrence)
	if err != nil {
		return nil, err
	}
	if req.ScheduledTime != "" {
		if err := ValidateClockTime(req.ScheduledTime); err != nil {
			return nil, err
		}
	}
	if !recurrence.IsNone() && req.ScheduledTime == "" {
		return nil, fmt.Errorf("recurring tasks need a scheduled time")
	}

	now := time.Now()
	task := &Task{
		ID:            uuid.New(),
		OwnerUserID:   ownerID,
		Title:         req.Title,
		Type:          req.Type,
		Status:        StatusActive,
		ScheduledTime: req.ScheduledTime,
		Recurrence:    recurrence,
		Deadline:      req.Deadline,
		Metadata:      defaultJSON(req.Metadata),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) GetOwned(ctx context.Context, ownerID, taskID uuid.UUID) (*Task, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil || task.OwnerUserID != ownerID {
		return nil, nil
	}
	return task, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID, params ListTasksParams) ([]*Task, int64, error) {
	rows, err := s.repo.ListByOwner(ctx, ownerID, params)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.repo.CountByOwner(ctx, ownerID, params.Status)
	if err != nil {
		return nil, 0, err
	}
	return rows, count, nil
}

func (s *Service) ListActiveScheduled(ctx context.Context, ownerID uuid.UUID) ([]*Task, error) {
	return s.repo.ListActiveScheduled(ctx, ownerID)
}

func (s *Service) ListSubtasksByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Subtask, error) {
	return s.repo.ListSubtasksByOwner(ctx, ownerID)
}

func (s *Service) Update(ctx context.Context, task *Task, req *UpdateTaskRequest) (*Task, error) {
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.ScheduledTime != nil {
		if *req.ScheduledTime != "" {
			if err := ValidateClockTime(*req.ScheduledTime); err != nil {
				return nil, err
			}
		}
		task.ScheduledTime = *req.ScheduledTime
	}
	if req.Recurrence != nil {
		recurrence, err := ParseRecurrence(*req.Recurrence)
		if err != nil {
			return nil, err
		}
		task.Recurrence = recurrence
	}
	if req.Deadline != nil {
		task.Deadline = req.Deadline
	}
	if req.Metadata != nil {
		task.Metadata = *req.Metadata
	}
	task.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) Delete(ctx context.Context, taskID uuid.UUID) error {
	return s.repo.SoftDelete(ctx, taskID)
}

// Complete marks the task completed and appends a completed event. For
// recurring tasks the status stays active so tomorrow's occurrence still
// schedules; completion is tracked per-day through the event log.
func (s *Service) Complete(ctx context.Context, task *Task) error {
	if task.Recurrence.IsNone() {
		task.Status = StatusCompleted
		task.UpdatedAt = time.Now()
		if err := s.repo.Update(ctx, task); err != nil {
			return err
		}
	}
	return s.events.Append(ctx, &Event{
		TaskID:      task.ID,
		OwnerUserID: task.OwnerUserID,
		Kind:        EventCompleted,
		OccurredAt:  time.Now(),
	})
}

// SkipToday appends a skipped_today event. Cancelling the day's pending
// reminders is a derived effect handled by the caller; the event log is the
// authoritative record of the skip.
func (s *Service) SkipToday(ctx context.Context, task *Task) error {
	return s.events.Append(ctx, &Event{
		TaskID:      task.ID,
		OwnerUserID: task.OwnerUserID,
		Kind:        EventSkippedToday,
		OccurredAt:  time.Now(),
	})
}

func (s *Service) EventExistsInRange(ctx context.Context, taskID uuid.UUID, kind string, from, to time.Time) (bool, error) {
	return s.events.ExistsInRange(ctx, taskID, kind, from, to)
}

func (s *Service) CreateSubtask(ctx context.Context, task *Task, title, scheduledTime string) (*Subtask, error) {
	if scheduledTime != "" {
		if err := ValidateClockTime(scheduledTime); err != nil {
			return nil, err
		}
	}
	now := time.Now()
	sub := &Subtask{
		ID:            uuid.New(),
		TaskID:        task.ID,
		OwnerUserID:   task.OwnerUserID,
		Title:         title,
		Status:        StatusActive,
		ScheduledTime: scheduledTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateSubtask(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) GetOwnedSubtask(ctx context.Context, ownerID, subtaskID uuid.UUID) (*Subtask, error) {
	sub, err := s.repo.GetSubtaskByID(ctx, subtaskID)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.OwnerUserID != ownerID {
		return nil, nil
	}
	return sub, nil
}

func (s *Service) UpdateSubtask(ctx context.Context, sub *Subtask) error {
	sub.UpdatedAt = time.Now()
	return s.repo.UpdateSubtask(ctx, sub)
}

func (s *Service) DeleteSubtask(ctx context.Context, subtaskID uuid.UUID) error {
	return s.repo.SoftDeleteSubtask(ctx, subtaskID)
}

func defaultJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return raw
}
