package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coachd-platform/coachd/internal/metrics"
	"github.com/coachd-platform/coachd/internal/schedule"
	"github.com/coachd-platform/coachd/internal/users"
)

// UserDirectory resolves a scheduled message's owner.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// NotificationComposer renders outbound text for a due message.
type NotificationComposer interface {
	ComposeNotification(ctx context.Context, user *users.User, msg *schedule.ScheduledMessage) string
}

// OutboundGateway delivers a rendered message to the user's chat address.
type OutboundGateway interface {
	Send(ctx context.Context, toAddress, text string) error
}

// Sweeper dispatches due scheduled messages. Every selected row leaves the
// pending state after an attempt: sent on success, failed on any error.
// Failed rows are not retried automatically; they stay visible for operator
// inspection.
type Sweeper struct {
	messages  schedule.Repository
	users     UserDirectory
	composer  NotificationComposer
	outbound  OutboundGateway
	batchSize int
}

func NewSweeper(messages schedule.Repository, userDirectory UserDirectory,
	composer NotificationComposer, outbound OutboundGateway, batchSize int) *Sweeper {
	return &Sweeper{
		messages:  messages,
		users:     userDirectory,
		composer:  composer,
		outbound:  outbound,
		batchSize: batchSize,
	}
}

// ProcessPendingSchedules selects and dispatches every pending message due
// by now. Rows are processed serially; the workload is per-user and
// low-volume.
func (s *Sweeper) ProcessPendingSchedules(ctx context.Context, now time.Time) error {
	due, err := s.messages.ListDuePending(ctx, now, s.batchSize)
	if err != nil {
		return err
	}

	for _, msg := range due {
		if err := s.dispatch(ctx, msg, now); err != nil {
			slog.Error("dispatching scheduled message",
				"message_id", msg.ID, "kind", msg.Kind, "error", err)
			if err := s.messages.MarkFailed(ctx, msg.ID); err != nil {
				slog.Error("marking message failed", "message_id", msg.ID, "error", err)
			}
			metrics.DispatchesTotal.WithLabelValues("failed").Inc()
			continue
		}
		if err := s.messages.MarkSent(ctx, msg.ID, now); err != nil {
			slog.Error("marking message sent", "message_id", msg.ID, "error", err)
		}
		metrics.DispatchesTotal.WithLabelValues("sent").Inc()
	}
	return nil
}

func (s *Sweeper) dispatch(ctx context.Context, msg *schedule.ScheduledMessage, now time.Time) error {
	user, err := s.users.GetByID(ctx, msg.OwnerUserID)
	if err != nil {
		return err
	}
	if user == nil || !user.Active || user.ChatJID == "" {
		return errUndeliverable
	}

	text := s.composer.ComposeNotification(ctx, user, msg)
	return s.outbound.Send(ctx, user.ChatJID, text)
}

var errUndeliverable = errors.New("owner has no deliverable chat address")
