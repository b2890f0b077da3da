package tasks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Task types.
const (
	TypeOneOff    = "one_off"
	TypeRecurring = "recurring"
	TypeProject   = "project"
	TypeGoal      = "goal"
)

// Task statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusArchived  = "archived"
)

// Task event kinds.
const (
	EventCompleted   = "completed"
	EventSkippedToday = "skipped_today"
)

type Task struct {
	ID            uuid.UUID       `json:"id"`
	OwnerUserID   uuid.UUID       `json:"owner_user_id"`
	Title         string          `json:"title"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	ScheduledTime string          `json:"scheduled_time,omitempty"` // HH:MM in the owner's timezone
	Recurrence    Recurrence      `json:"recurrence"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
}

type Subtask struct {
	ID            uuid.UUID  `json:"id"`
	TaskID        uuid.UUID  `json:"task_id"`
	OwnerUserID   uuid.UUID  `json:"owner_user_id"`
	Title         string     `json:"title"`
	Status        string     `json:"status"`
	ScheduledTime string     `json:"scheduled_time,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// Event is an append-only record of something happening to a task,
// used by the reminder scheduler to suppress follow-ups.
type Event struct {
	ID          uuid.UUID `json:"id"`
	TaskID      uuid.UUID `json:"task_id"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	Kind        string    `json:"kind"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type CreateTaskRequest struct {
	Title         string          `json:"title" validate:"required,min=1,max=500"`
	Type          string          `json:"type" validate:"required,oneof=one_off recurring project goal"`
	ScheduledTime string          `json:"scheduled_time" validate:"omitempty,len=5"`
	Recurrence    string          `json:"recurrence"`
	Deadline      *time.Time      `json:"deadline"`
	Metadata      json.RawMessage `json:"metadata"`
}

type UpdateTaskRequest struct {
	Title         *string          `json:"title" validate:"omitempty,min=1,max=500"`
	Status        *string          `json:"status" validate:"omitempty,oneof=active completed archived"`
	ScheduledTime *string          `json:"scheduled_time" validate:"omitempty,len=5"`
	Recurrence    *string          `json:"recurrence"`
	Deadline      *time.Time       `json:"deadline"`
	Metadata      *json.RawMessage `json:"metadata"`
}

type ListTasksParams struct {
	Status   string
	Page     int
	PageSize int
}

func DefaultListParams() ListTasksParams {
	return ListTasksParams{
		Page:     1,
		PageSize: 20,
	}
}
