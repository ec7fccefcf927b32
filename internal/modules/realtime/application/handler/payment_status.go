package handler

import (
	"context"
	"log/slog"
	"strings"

	"posDisplayWs/internal/modules/realtime/application/port"
	"posDisplayWs/internal/modules/realtime/application/usecase"
	"posDisplayWs/internal/modules/realtime/domain"
)

// PaymentStatusHandler turns provider status events of one topic into display control signals.
type PaymentStatusHandler struct {
	topic       string
	broadcastUC *usecase.BroadcastUseCase
}

func NewPaymentStatusHandler(topic string, broadcastUC *usecase.BroadcastUseCase) *PaymentStatusHandler {
	return &PaymentStatusHandler{topic: strings.TrimSpace(topic), broadcastUC: broadcastUC}
}

func (h *PaymentStatusHandler) Topic() string { return h.topic }

func (h *PaymentStatusHandler) Handle(ctx context.Context, evt *domain.PaymentEvent) error {
	if evt == nil {
		return nil
	}
	sig, ok := evt.Signal(0)
	if !ok {
		slog.Debug("payment status ignored", slog.String("topic", h.topic), slog.String("transactionUuid", evt.TransactionUUID), slog.String("status", evt.Status))
		return nil
	}
	delivered, err := h.broadcastUC.Signal(ctx, sig)
	if err != nil {
		return err
	}
	slog.Info("payment status forwarded", slog.String("topic", h.topic), slog.String("transactionUuid", evt.TransactionUUID), slog.String("type", sig.Type.String()), slog.Int("delivered", delivered))
	return nil
}

var _ port.TopicHandler = (*PaymentStatusHandler)(nil)
