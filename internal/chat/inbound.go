package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/coachd-platform/coachd/internal/nats"
	"github.com/coachd-platform/coachd/internal/users"
)

// UserResolver maps a chat address to a registered user.
type UserResolver interface {
	GetByChatJID(ctx context.Context, jid string) (*users.User, error)
}

// TurnHandler runs the conversation loop for one inbound message.
type TurnHandler interface {
	HandleUserTurn(ctx context.Context, user *users.User, text string) (string, error)
}

// TurnLimiter enforces the per-user turn rate.
type TurnLimiter interface {
	CheckAndIncrement(ctx context.Context, userID uuid.UUID, maxPerMinute int) (bool, error)
}

// OutboundPublisher is the publishing surface the worker replies through.
type OutboundPublisher interface {
	PublishOutboundMessage(ctx context.Context, msg inats.OutboundMessage) error
	PublishAuditEvent(ctx context.Context, event inats.AuditEvent) error
}

const limitedReply = "You're sending messages faster than I can keep up. Give me a minute and try again."

const failedTurnReply = "I'm sorry, something went wrong while handling that message. Please try again in a moment."

// maxTurnDeliveries bounds redelivery of a failing turn. After the last
// attempt the user gets the fixed apology instead of silence.
const maxTurnDeliveries = 3

// InboundWorker consumes inbound chat messages and runs each through the
// conversation loop. One loop instance per message; loops for different
// users never share state.
type InboundWorker struct {
	consumerMgr  *inats.ConsumerManager
	publisher    OutboundPublisher
	resolver     UserResolver
	loop         TurnHandler
	limiter      TurnLimiter
	turnsPerMin  int
	componentJID string
}

func NewInboundWorker(consumerMgr *inats.ConsumerManager, publisher OutboundPublisher,
	resolver UserResolver, loop TurnHandler, limiter TurnLimiter, turnsPerMin int, componentJID string) *InboundWorker {
	return &InboundWorker{
		consumerMgr:  consumerMgr,
		publisher:    publisher,
		resolver:     resolver,
		loop:         loop,
		limiter:      limiter,
		turnsPerMin:  turnsPerMin,
		componentJID: componentJID,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (w *InboundWorker) Start(ctx context.Context) error {
	consumer, err := w.consumerMgr.EnsureConsumer(ctx, inats.StreamMessages, "inbound-worker", inats.SubjectInboundMessage)
	if err != nil {
		return err
	}

	slog.Info("inbound worker started", "consumer", "inbound-worker")

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("fetching inbound messages", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			w.handleMessage(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (w *InboundWorker) handleMessage(ctx context.Context, msg jetstream.Msg) {
	var inbound inats.InboundMessage
	if err := json.Unmarshal(msg.Data(), &inbound); err != nil {
		slog.Error("unmarshaling inbound message", "error", err)
		_ = msg.Nak()
		return
	}

	user, err := w.resolver.GetByChatJID(ctx, inbound.FromJID)
	if err != nil {
		slog.Error("resolving inbound sender", "from", inbound.FromJID, "error", err)
		_ = msg.Nak()
		return
	}
	if user == nil || !user.Active {
		// Unregistered senders are dropped, not bounced: replying would
		// turn the component into a spam reflector.
		slog.Warn("inbound message from unknown sender", "from", inbound.FromJID)
		_ = msg.Ack()
		return
	}

	allowed, err := w.limiter.CheckAndIncrement(ctx, user.ID, w.turnsPerMin)
	if err != nil {
		slog.Error("checking turn rate", "user_id", user.ID, "error", err)
		allowed = true // fail open
	}
	if !allowed {
		w.reply(ctx, inbound, limitedReply)
		_ = msg.Ack()
		return
	}

	reply, err := w.loop.HandleUserTurn(ctx, user, inbound.Body)
	if err != nil {
		slog.Error("handling user turn", "user_id", user.ID, "error", err)
		if deliveryCount(msg) >= maxTurnDeliveries {
			w.reply(ctx, inbound, failedTurnReply)
			_ = msg.Ack()
			return
		}
		_ = msg.Nak()
		return
	}

	w.reply(ctx, inbound, reply)
	w.audit(ctx, user.ID, inbound)
	_ = msg.Ack()
}

// deliveryCount reads how many times JetStream has delivered the message.
// Zero means the metadata was unreadable; the caller treats that as a first
// delivery and retries.
func deliveryCount(msg jetstream.Msg) uint64 {
	meta, err := msg.Metadata()
	if err != nil {
		return 0
	}
	return meta.NumDelivered
}

func (w *InboundWorker) reply(ctx context.Context, inbound inats.InboundMessage, text string) {
	outbound := inats.OutboundMessage{
		ID:        uuid.New().String(),
		ToJID:     inbound.FromJID,
		FromJID:   w.componentJID,
		Body:      Truncate(text),
		InReplyTo: inbound.ID,
	}
	if err := w.publisher.PublishOutboundMessage(ctx, outbound); err != nil {
		slog.Error("publishing reply", "to", inbound.FromJID, "error", err)
	}
}

func (w *InboundWorker) audit(ctx context.Context, userID uuid.UUID, inbound inats.InboundMessage) {
	event := inats.AuditEvent{
		OwnerUserID:  userID,
		EventType:    "turn_completed",
		Severity:     "info",
		ResourceType: "message",
		ResourceID:   inbound.ID,
		Timestamp:    time.Now().UTC(),
	}
	if err := w.publisher.PublishAuditEvent(ctx, event); err != nil {
		slog.Warn("publishing audit event", "error", err)
	}
}
