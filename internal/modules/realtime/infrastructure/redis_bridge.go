package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"posDisplayWs/internal/modules/realtime/domain"
)

// ErrBridgeNotStarted is returned by Wait before Start succeeded.
var ErrBridgeNotStarted = errors.New("redis bridge not started")

// RedisBridge mirrors fan-out between relay instances over a Redis pub/sub channel.
type RedisBridge struct {
	client     *redis.Client
	channel    string
	instanceID string
	done       chan struct{}
}

type bridgeMessage struct {
	Origin string          `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

func NewRedisBridge(client *redis.Client, channel, instanceID string) *RedisBridge {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "pos:display:relay"
	}
	return &RedisBridge{client: client, channel: channel, instanceID: instanceID}
}

// Publish sends env to the other instances, tagged with this instance id.
func (b *RedisBridge) Publish(ctx context.Context, env *domain.Envelope) error {
	payload, err := json.Marshal(bridgeMessage{Origin: b.instanceID, Data: env.Raw})
	if err != nil {
		return fmt.Errorf("marshal bridge message: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", b.channel, err)
	}
	return nil
}

// Start subscribes to the channel and, once the subscription is confirmed, delivers envelopes
// from other instances to sink in the background until ctx is cancelled.
func (b *RedisBridge) Start(ctx context.Context, sink func(*domain.Envelope) int) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}
	b.done = make(chan struct{})
	slog.Info("redis bridge subscribed", slog.String("channel", b.channel), slog.String("instanceId", b.instanceID))

	go func() {
		defer close(b.done)
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				b.handle(msg.Payload, sink)
			}
		}
	}()
	return nil
}

// Wait blocks until the background loop exits.
func (b *RedisBridge) Wait() error {
	if b.done == nil {
		return ErrBridgeNotStarted
	}
	<-b.done
	return nil
}

func (b *RedisBridge) handle(payload string, sink func(*domain.Envelope) int) {
	var msg bridgeMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		slog.Warn("redis bridge message malformed", slog.Any("error", err))
		return
	}
	if msg.Origin == b.instanceID {
		return
	}
	env, err := domain.ParseEnvelope(msg.Data)
	if err != nil {
		slog.Warn("redis bridge envelope dropped", slog.String("origin", msg.Origin), slog.Any("error", err))
		return
	}
	delivered := sink(env)
	slog.Debug("redis bridge delivered", slog.String("origin", msg.Origin), slog.String("type", env.Type.String()), slog.Int("delivered", delivered))
}
