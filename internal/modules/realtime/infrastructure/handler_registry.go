package infrastructure

import (
	"context"
	"sort"

	"posDisplayWs/internal/modules/realtime/application/port"
	"posDisplayWs/internal/modules/realtime/domain"
)

// HandlerRegistry routes broker events to the handler registered for their topic.
type HandlerRegistry struct {
	handlers map[string]port.TopicHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]port.TopicHandler)}
}

func (r *HandlerRegistry) Register(h port.TopicHandler) {
	r.handlers[h.Topic()] = h
}

// Topics lists the registered topics in sorted order.
func (r *HandlerRegistry) Topics() []string {
	topics := make([]string, 0, len(r.handlers))
	for topic := range r.handlers {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

func (r *HandlerRegistry) Dispatch(ctx context.Context, evt *domain.PaymentEvent) error {
	if handler, ok := r.handlers[evt.Topic]; ok {
		return handler.Handle(ctx, evt)
	}
	return nil
}
