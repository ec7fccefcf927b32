package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posDisplayWs/internal/modules/realtime/application/usecase"
	"posDisplayWs/internal/modules/realtime/domain"
)

type recordingBroadcaster struct {
	envelopes []*domain.Envelope
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, env *domain.Envelope) int {
	b.envelopes = append(b.envelopes, env)
	return 1
}

func TestPaymentStatusHandlerForwardsOutcomes(t *testing.T) {
	rec := &recordingBroadcaster{}
	h := NewPaymentStatusHandler(" payments.status ", usecase.NewBroadcastUseCase(rec))
	assert.Equal(t, "payments.status", h.Topic())

	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, &domain.PaymentEvent{TransactionUUID: "t-1", Status: "COMPLETE", Amount: 100}))
	require.NoError(t, h.Handle(ctx, &domain.PaymentEvent{TransactionUUID: "t-2", Status: "PENDING"}))
	require.NoError(t, h.Handle(ctx, &domain.PaymentEvent{TransactionUUID: "t-3", Status: "EXPIRED"}))
	require.NoError(t, h.Handle(ctx, nil))

	require.Len(t, rec.envelopes, 2)
	assert.Equal(t, domain.TagPaymentSuccess, rec.envelopes[0].Type)
	assert.Equal(t, "t-1", rec.envelopes[0].TransactionUUID)
	assert.Equal(t, domain.TagQRPaymentCancelled, rec.envelopes[1].Type)
	assert.Equal(t, "t-3", rec.envelopes[1].TransactionUUID)
}
