package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/coachd-platform/coachd/internal/nats"
)

// Consumer persists audit events from NATS into PostgreSQL.
type Consumer struct {
	repo        *Repository
	consumerMgr *inats.ConsumerManager
}

func NewConsumer(repo *Repository, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins consuming audit events and persisting them. Blocks until the
// context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, "audit-persister", inats.SubjectAuditEvent)
	if err != nil {
		return err
	}

	slog.Info("audit consumer started", "consumer", "audit-persister")

	for {
		msgs, err := consumer.Fetch(25, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("fetching audit events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			if err := c.persist(ctx, msg.Data()); err != nil {
				slog.Error("persisting audit event", "error", err)
				_ = msg.Nak()
				continue
			}
			_ = msg.Ack()
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) persist(ctx context.Context, data []byte) error {
	var event inats.AuditEvent
	if err := json.Unmarshal(data, &event); err != nil {
		// Malformed events cannot be retried; log and drop.
		slog.Error("unmarshaling audit event", "error", err)
		return nil
	}

	return c.repo.Insert(ctx, eventToLog(event))
}

// eventToLog converts a NATS audit event into a persistable log row.
// Non-UUID resource IDs are dropped rather than failing the event, and
// free-text details are wrapped in a JSON envelope.
func eventToLog(event inats.AuditEvent) *Log {
	log := &Log{
		OwnerUserID:  event.OwnerUserID,
		EventType:    event.EventType,
		Severity:     event.Severity,
		ResourceType: event.ResourceType,
		CreatedAt:    event.Timestamp,
	}

	if event.ResourceID != "" {
		if id, err := uuid.Parse(event.ResourceID); err == nil {
			log.ResourceID = &id
		}
	}

	if event.Details != "" {
		if json.Valid([]byte(event.Details)) {
			log.Details = json.RawMessage(event.Details)
		} else {
			wrapped, _ := json.Marshal(map[string]string{"message": event.Details})
			log.Details = wrapped
		}
	}

	return log
}
