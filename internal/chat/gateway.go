package chat

import (
	"context"

	"github.com/google/uuid"

	inats "github.com/coachd-platform/coachd/internal/nats"
)

// Gateway is the outbound send surface handed to the sweeper and the inbound
// worker. Messages go through the NATS outbound subject; the relay delivers
// them over XMPP.
type Gateway struct {
	publisher *inats.Publisher
	fromJID   string
}

func NewGateway(publisher *inats.Publisher, fromJID string) *Gateway {
	return &Gateway{publisher: publisher, fromJID: fromJID}
}

// Send queues one message for delivery. Text is truncated to the outbound
// ceiling before publishing so oversized payloads never reach the stream.
func (g *Gateway) Send(ctx context.Context, toAddress, text string) error {
	return g.publisher.PublishOutboundMessage(ctx, inats.OutboundMessage{
		ID:      uuid.New().String(),
		ToJID:   toAddress,
		FromJID: g.fromJID,
		Body:    Truncate(text),
	})
}
