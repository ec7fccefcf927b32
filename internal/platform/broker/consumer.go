package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"posDisplayWs/internal/modules/realtime/application/port"
	"posDisplayWs/internal/modules/realtime/domain"
	"posDisplayWs/internal/shared/normalization"
)

// ErrUndecodable marks broker messages that carry no usable payment event.
var ErrUndecodable = errors.New("undecodable payment event")

type KafkaConsumer struct {
	reader     *kafka.Reader
	retryDelay time.Duration
}

func NewKafkaConsumer(brokers []string, groupID string, topic string) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}),
		retryDelay: time.Second,
	}
}

// Consume reads until ctx is cancelled. Handler errors are logged and do not stop the loop.
func (c *KafkaConsumer) Consume(ctx context.Context, handler func(*domain.PaymentEvent) error) error {
	defer c.reader.Close()
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("kafka read error", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
			continue
		}
		evt, err := decodePaymentEvent(m)
		if err != nil {
			slog.Warn("kafka message skipped", slog.String("topic", m.Topic), slog.Int64("offset", m.Offset), slog.Any("error", err))
			continue
		}
		slog.Info("kafka message consumed",
			slog.String("topic", m.Topic),
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
			slog.String("transactionUuid", evt.TransactionUUID),
			slog.String("status", evt.Status),
		)
		if err := handler(evt); err != nil {
			slog.Warn("kafka handler error", slog.Any("error", err))
		}
	}
}

func decodePaymentEvent(m kafka.Message) (*domain.PaymentEvent, error) {
	var raw any
	if err := json.Unmarshal(m.Value, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	payload := normalization.MapFromPayload(raw)
	if payload == nil {
		return nil, fmt.Errorf("%w: not an object", ErrUndecodable)
	}
	evt := &domain.PaymentEvent{
		Topic:           m.Topic,
		TransactionUUID: normalization.FirstString(payload, "transactionUuid", "transaction_uuid", "transactionId"),
		Status:          normalization.FirstString(payload, "status", "paymentStatus"),
		Amount:          normalization.FirstFloat64(payload, "amount", "total_amount", "totalAmount"),
	}
	if evt.Status == "" {
		return nil, fmt.Errorf("%w: missing status", ErrUndecodable)
	}
	return evt, nil
}

var _ port.PaymentEventSource = (*KafkaConsumer)(nil)
