package broker

import (
	"context"
	"log/slog"

	"posDisplayWs/internal/modules/realtime/domain"
	"posDisplayWs/internal/modules/realtime/infrastructure"
)

// StartKafkaConsumers runs one consumer per registered topic until ctx is cancelled.
func StartKafkaConsumers(
	ctx context.Context,
	registry *infrastructure.HandlerRegistry,
	brokers []string,
	groupID string,
) {
	if len(brokers) == 0 {
		slog.Info("kafka disabled: no brokers configured")
		return
	}
	for _, topic := range registry.Topics() {
		go func(tp string) {
			consumer := NewKafkaConsumer(brokers, groupID, tp)
			err := consumer.Consume(ctx, func(evt *domain.PaymentEvent) error {
				return registry.Dispatch(ctx, evt)
			})
			slog.Info("kafka consumer stopped", slog.String("topic", tp), slog.Any("reason", err))
		}(topic)
	}
}
