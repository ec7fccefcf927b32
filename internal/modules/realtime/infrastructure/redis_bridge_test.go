package infrastructure

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posDisplayWs/internal/modules/realtime/domain"
)

type envelopeSink struct {
	mu  sync.Mutex
	got []*domain.Envelope
}

func (s *envelopeSink) deliver(env *domain.Envelope) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, env)
	return 1
}

func (s *envelopeSink) types() []domain.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Tag, 0, len(s.got))
	for _, env := range s.got {
		out = append(out, env.Type)
	}
	return out
}

func TestRedisBridgeMirrorsBetweenInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = clientA.Close()
		_ = clientB.Close()
	})

	bridgeA := NewRedisBridge(clientA, "", "instance-a")
	bridgeB := NewRedisBridge(clientB, "", "instance-b")
	sinkA := &envelopeSink{}
	sinkB := &envelopeSink{}
	require.NoError(t, bridgeA.Start(ctx, sinkA.deliver))
	require.NoError(t, bridgeB.Start(ctx, sinkB.deliver))

	fromA, err := domain.ParseEnvelope([]byte(`{"type":"cart_update","cart":[]}`))
	require.NoError(t, err)
	require.NoError(t, bridgeA.Publish(ctx, fromA))
	assert.Eventually(t, func() bool { return len(sinkB.types()) == 1 }, 2*time.Second, 10*time.Millisecond)

	fromB, err := domain.ParseEnvelope([]byte(`{"type":"qr_payment","transactionUuid":"abc"}`))
	require.NoError(t, err)
	require.NoError(t, bridgeB.Publish(ctx, fromB))
	assert.Eventually(t, func() bool { return len(sinkA.types()) == 1 }, 2*time.Second, 10*time.Millisecond)

	// each instance only ever sees the other's traffic
	assert.Equal(t, []domain.Tag{domain.TagQRPayment}, sinkA.types())
	assert.Equal(t, []domain.Tag{domain.TagCartUpdate}, sinkB.types())

	cancel()
	require.NoError(t, bridgeA.Wait())
	require.NoError(t, bridgeB.Wait())
}

func TestRedisBridgeWaitBeforeStart(t *testing.T) {
	bridge := NewRedisBridge(nil, "chan", "x")
	assert.ErrorIs(t, bridge.Wait(), ErrBridgeNotStarted)
}
