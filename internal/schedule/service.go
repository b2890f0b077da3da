package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coachd-platform/coachd/internal/users"
)

// ErrConfirmed is returned when a schedule update targets a day whose
// schedule was already confirmed. Confirmation is irreversible.
var ErrConfirmed = errors.New("schedule already confirmed")

type Service struct {
	schedules ScheduleRepository
	messages  Repository
}

func NewService(schedules ScheduleRepository, messages Repository) *Service {
	return &Service{schedules: schedules, messages: messages}
}

// ApplyProposed stores the parsed items as the day's draft schedule. The
// draft can be rewritten any number of times until confirmation.
func (s *Service) ApplyProposed(ctx context.Context, user *users.User, now time.Time, result *ParseResult) (*DailySchedule, error) {
	localDate := now.In(user.Location()).Format(time.DateOnly)

	sched, err := s.schedules.UpsertDraft(ctx, user.ID, localDate)
	if err != nil {
		return nil, err
	}
	if sched.Status == ScheduleConfirmed {
		return nil, ErrConfirmed
	}
	if err := s.schedules.ReplaceItems(ctx, sched.ID, toItems(result)); err != nil {
		return nil, err
	}
	return sched, nil
}

// ApplyFinal stores the parsed items, confirms the day's schedule, and
// creates the pending notification messages the schedule text asked for.
func (s *Service) ApplyFinal(ctx context.Context, user *users.User, now time.Time, result *ParseResult) (*DailySchedule, error) {
	loc := user.Location()
	localNow := now.In(loc)
	localDate := localNow.Format(time.DateOnly)

	sched, err := s.schedules.UpsertDraft(ctx, user.ID, localDate)
	if err != nil {
		return nil, err
	}
	if sched.Status == ScheduleConfirmed {
		return nil, ErrConfirmed
	}
	if err := s.schedules.ReplaceItems(ctx, sched.ID, toItems(result)); err != nil {
		return nil, err
	}
	if err := s.schedules.Confirm(ctx, sched.ID); err != nil {
		return nil, err
	}
	sched.Status = ScheduleConfirmed

	for _, notification := range result.Notifications {
		at, err := ComposeInstant(localNow, notification.StartTime, loc)
		if err != nil {
			slog.Warn("skipping notification with bad time",
				"user_id", user.ID, "start_time", notification.StartTime)
			continue
		}
		msg := &ScheduledMessage{
			ID:           uuid.New(),
			OwnerUserID:  user.ID,
			Kind:         notification.Kind,
			Status:       StatusPending,
			ScheduledFor: at,
			LocalDate:    localDate,
			Title:        notification.Title,
			Content:      notification.Title,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		inserted, err := s.messages.InsertIfAbsent(ctx, msg)
		if err != nil {
			return nil, fmt.Errorf("scheduling notification: %w", err)
		}
		if !inserted {
			slog.Warn("notification already scheduled",
				"user_id", user.ID, "kind", notification.Kind, "start_time", notification.StartTime)
		}
	}
	return sched, nil
}

func (s *Service) GetForDate(ctx context.Context, ownerID uuid.UUID, date string) (*DailySchedule, []*ScheduleItem, error) {
	sched, err := s.schedules.GetByOwnerDate(ctx, ownerID, date)
	if err != nil || sched == nil {
		return nil, nil, err
	}
	items, err := s.schedules.ListItems(ctx, sched.ID)
	if err != nil {
		return nil, nil, err
	}
	return sched, items, nil
}

func (s *Service) ListUpcomingMessages(ctx context.Context, ownerID uuid.UUID, limit int) ([]*ScheduledMessage, error) {
	return s.messages.ListUpcomingByOwner(ctx, ownerID, limit)
}

// CancelMessage cancels a pending message after checking ownership.
func (s *Service) CancelMessage(ctx context.Context, ownerID, messageID uuid.UUID) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil || msg.OwnerUserID != ownerID {
		return fmt.Errorf("scheduled message not found")
	}
	return s.messages.Cancel(ctx, messageID)
}

// SnoozeMessage pushes a pending message forward by the given duration
// after checking ownership.
func (s *Service) SnoozeMessage(ctx context.Context, ownerID, messageID uuid.UUID, until time.Time) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil || msg.OwnerUserID != ownerID {
		return fmt.Errorf("scheduled message not found")
	}
	return s.messages.Snooze(ctx, messageID, until)
}

// CancelForTaskDay cancels the task's pending reminders for the given local
// date, the derived effect of skipping or completing a task.
func (s *Service) CancelForTaskDay(ctx context.Context, ownerID, taskID uuid.UUID, localDate string) (int64, error) {
	return s.messages.CancelPendingForTaskDay(ctx, ownerID, taskID, localDate)
}

func toItems(result *ParseResult) []*ScheduleItem {
	items := make([]*ScheduleItem, 0, len(result.Items))
	for _, parsed := range result.Items {
		items = append(items, &ScheduleItem{
			TaskID:    parsed.TaskID,
			SubtaskID: parsed.SubtaskID,
			Title:     parsed.Title,
			StartTime: parsed.StartTime,
			EndTime:   parsed.EndTime,
		})
	}
	return items
}

// ComposeInstant builds the absolute instant for a HH:MM clock time on the
// given local day, going through the user's timezone directly.
func ComposeInstant(localDay time.Time, clock string, loc *time.Location) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(localDay.Year(), localDay.Month(), localDay.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, loc), nil
}
