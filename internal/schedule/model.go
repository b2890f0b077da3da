package schedule

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Scheduled message kinds.
const (
	KindPreReminder          = "pre_reminder"
	KindReminder             = "reminder"
	KindPostReminderFollowUp = "post_reminder_follow_up"
	KindFollowUp             = "follow_up"
	KindMorningMessage       = "morning_message"
)

// ReminderKinds are the three kinds emitted per task occurrence, and the
// kinds the per-day dedup invariant covers.
var ReminderKinds = []string{KindPreReminder, KindReminder, KindPostReminderFollowUp}

// Scheduled message statuses. Rows are never physically deleted;
// cancellation is a status transition.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// ScheduledMessage is a future notification owned by a user, optionally tied
// to a task. LocalDate is the calendar date of ScheduledFor in the owner's
// timezone and backs the per-day uniqueness constraint.
type ScheduledMessage struct {
	ID           uuid.UUID       `json:"id"`
	OwnerUserID  uuid.UUID       `json:"owner_user_id"`
	TaskID       *uuid.UUID      `json:"task_id,omitempty"`
	Kind         string          `json:"kind"`
	Status       string          `json:"status"`
	ScheduledFor time.Time       `json:"scheduled_for"`
	LocalDate    string          `json:"local_date"` // YYYY-MM-DD in the owner's timezone
	Title        string          `json:"title,omitempty"`
	Content      string          `json:"content,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	SentAt       *time.Time      `json:"sent_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ReminderMetadata is carried on reminder rows so the sweeper can render
// content without re-reading the task.
type ReminderMetadata struct {
	TaskID            uuid.UUID `json:"task_id"`
	TaskTitle         string    `json:"task_title"`
	TaskScheduledTime string    `json:"task_scheduled_time"`
}

// Daily schedule statuses. Confirmation is irreversible.
const (
	ScheduleDraft     = "draft"
	ScheduleConfirmed = "confirmed"
)

// DailySchedule is a day-scoped container of ordered timed entries.
type DailySchedule struct {
	ID          uuid.UUID `json:"id"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	Date        string    `json:"date"` // YYYY-MM-DD in the owner's timezone
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ScheduleItem struct {
	ID         uuid.UUID  `json:"id"`
	ScheduleID uuid.UUID  `json:"schedule_id"`
	TaskID     *uuid.UUID `json:"task_id,omitempty"`
	SubtaskID  *uuid.UUID `json:"subtask_id,omitempty"`
	Title      string     `json:"title"`
	StartTime  string     `json:"start_time"` // HH:MM
	EndTime    string     `json:"end_time,omitempty"`
	Position   int        `json:"position"`
}
