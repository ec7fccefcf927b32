package port

import (
	"context"

	"posDisplayWs/internal/modules/realtime/domain"
)

// PaymentEventSource consumes payment status events from an external broker.
type PaymentEventSource interface {
	Consume(ctx context.Context, handler func(*domain.PaymentEvent) error) error
}

// Broadcaster delivers server-originated envelopes to the connected sessions.
type Broadcaster interface {
	Broadcast(ctx context.Context, env *domain.Envelope) int
}

// TopicHandler handles the payment events of one broker topic.
type TopicHandler interface {
	Topic() string
	Handle(ctx context.Context, evt *domain.PaymentEvent) error
}
