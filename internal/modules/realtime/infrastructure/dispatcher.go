package infrastructure

import (
	"context"
	"log/slog"

	"posDisplayWs/internal/modules/realtime/domain"
)

// EnvelopeHandler reacts to one inbound envelope from conn.
type EnvelopeHandler func(ctx context.Context, conn *Connection, env *domain.Envelope)

// Dispatcher routes envelopes to the handler registered for their tag.
type Dispatcher struct {
	handlers map[domain.Tag]EnvelopeHandler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[domain.Tag]EnvelopeHandler)}
}

func (d *Dispatcher) Register(tag domain.Tag, handler EnvelopeHandler) {
	if handler == nil {
		return
	}
	key := domain.NormalizeTag(string(tag))
	if key == "" {
		return
	}
	d.handlers[key] = handler
}

// Dispatch reports false when no handler is registered for the envelope's tag.
func (d *Dispatcher) Dispatch(ctx context.Context, conn *Connection, env *domain.Envelope) bool {
	if env == nil {
		return false
	}
	handler, ok := d.handlers[env.Type]
	if !ok {
		attrs := []any{slog.String("type", env.Type.String())}
		if conn != nil {
			attrs = append(attrs, slog.String("connectionId", conn.ID()))
		}
		slog.Debug("ws envelope ignored", attrs...)
		return false
	}
	handler(ctx, conn, env)
	return true
}
