package infrastructure

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"posDisplayWs/internal/modules/realtime/domain"
)

// Publisher forwards locally fanned-out envelopes to other relay instances.
type Publisher interface {
	Publish(ctx context.Context, env *domain.Envelope) error
}

// Relay rebroadcasts envelopes between the connections of its registry.
type Relay struct {
	registry   *Registry
	dispatcher *Dispatcher
	metrics    *Metrics
	publisher  Publisher
	now        func() time.Time
}

func NewRelay(registry *Registry, metrics *Metrics) *Relay {
	if registry == nil {
		registry = NewRegistry()
	}
	r := &Relay{
		registry:   registry,
		dispatcher: NewDispatcher(),
		metrics:    metrics,
		now:        time.Now,
	}
	r.dispatcher.Register(domain.TagPing, r.handlePing)
	r.dispatcher.Register(domain.TagPong, func(context.Context, *Connection, *domain.Envelope) {})
	r.dispatcher.Register(domain.TagCustomerDisplayConnected, r.handleDisplayConnected)
	for _, tag := range []domain.Tag{
		domain.TagCartUpdate,
		domain.TagQRPayment,
		domain.TagQRPaymentCancelled,
		domain.TagPaymentSuccess,
		domain.TagCloseQRPopup,
		domain.TagRestoreCartDisplay,
	} {
		r.dispatcher.Register(tag, r.handleFanOut)
	}
	return r
}

// WithPublisher enables cross-instance forwarding of every fan-out.
func (r *Relay) WithPublisher(p Publisher) *Relay {
	r.publisher = p
	return r
}

func (r *Relay) Registry() *Registry { return r.registry }

// Attach registers c in the live set.
func (r *Relay) Attach(c *Connection) {
	if !r.registry.Add(c) {
		return
	}
	r.metrics.connectionOpened()
	slog.Info("ws connection attached", slog.String("connectionId", c.ID()), slog.String("scope", c.Scope()), slog.String("remoteAddr", c.RemoteAddr()), slog.Int("live", r.registry.Len()))
}

// Detach removes c immediately and closes it. Safe to call more than once.
func (r *Relay) Detach(c *Connection) {
	if c == nil {
		return
	}
	removed := r.registry.Remove(c)
	c.close()
	if !removed {
		return
	}
	r.metrics.connectionClosed()
	slog.Info("ws connection detached", slog.String("connectionId", c.ID()), slog.String("role", c.Role()), slog.Int("live", r.registry.Len()))
}

// HandleRaw parses one inbound frame and dispatches it. Bad payloads are logged and dropped; the sender stays connected.
func (r *Relay) HandleRaw(c *Connection, data []byte) {
	env, err := domain.ParseEnvelope(data)
	switch {
	case errors.Is(err, domain.ErrUnknownTag):
		r.metrics.envelopeDropped(DropUnknownTag)
		slog.Debug("ws envelope unknown tag", slog.String("connectionId", c.ID()), slog.String("type", env.Type.String()))
		return
	case err != nil:
		r.metrics.envelopeDropped(DropMalformed)
		slog.Warn("ws envelope malformed", slog.String("connectionId", c.ID()), slog.Int("bytes", len(data)), slog.Any("error", err))
		return
	}
	r.metrics.envelopeReceived(env.Type)
	if !r.dispatcher.Dispatch(context.Background(), c, env) {
		r.metrics.envelopeDropped(DropUnhandled)
	}
}

// FanOut queues env to every live connection except from and returns the number of successful deliveries.
func (r *Relay) FanOut(ctx context.Context, from *Connection, env *domain.Envelope) int {
	delivered := r.deliverLocal(from, env)
	r.publish(ctx, env)
	return delivered
}

// Broadcast delivers a server-originated envelope to every live connection.
func (r *Relay) Broadcast(ctx context.Context, env *domain.Envelope) int {
	delivered := r.deliverLocal(nil, env)
	r.publish(ctx, env)
	return delivered
}

// DeliverRemote hands an envelope received from another instance to local connections only.
func (r *Relay) DeliverRemote(env *domain.Envelope) int {
	return r.deliverLocal(nil, env)
}

func (r *Relay) deliverLocal(from *Connection, env *domain.Envelope) int {
	if env == nil || len(env.Raw) == 0 {
		return 0
	}
	delivered := 0
	for _, peer := range r.registry.Snapshot() {
		if peer == from || !inScope(peer, env) {
			continue
		}
		if err := peer.Enqueue(env.Raw); err != nil {
			r.metrics.deliveryFailed()
			slog.Warn("ws fan-out delivery failed", slog.String("connectionId", peer.ID()), slog.String("type", env.Type.String()), slog.Any("error", err))
			go r.Detach(peer)
			continue
		}
		delivered++
	}
	r.metrics.delivered(delivered)
	attrs := []any{slog.String("type", env.Type.String()), slog.Int("delivered", delivered)}
	if from != nil {
		attrs = append(attrs, slog.String("from", from.ID()))
	}
	slog.Debug("ws fan-out", attrs...)
	return delivered
}

func (r *Relay) publish(ctx context.Context, env *domain.Envelope) {
	if r.publisher == nil || env == nil {
		return
	}
	if err := r.publisher.Publish(ctx, env); err != nil {
		slog.Warn("relay publish to peers failed", slog.String("type", env.Type.String()), slog.Any("error", err))
	}
}

func inScope(peer *Connection, env *domain.Envelope) bool {
	if !env.Type.Scoped() || env.TransactionUUID == "" || peer.Scope() == "" {
		return true
	}
	return peer.Scope() == env.TransactionUUID
}

func (r *Relay) handlePing(_ context.Context, c *Connection, _ *domain.Envelope) {
	pong, err := domain.Encode(domain.NewSignal(domain.TagPong, "", r.now().UnixMilli()))
	if err != nil {
		slog.Error("ws pong encode failed", slog.Any("error", err))
		return
	}
	if err := c.Enqueue(pong.Raw); err != nil {
		slog.Warn("ws pong delivery failed", slog.String("connectionId", c.ID()), slog.Any("error", err))
	}
}

func (r *Relay) handleDisplayConnected(_ context.Context, c *Connection, _ *domain.Envelope) {
	c.SetRole(domain.RoleDisplay)
	slog.Info("ws customer display registered", slog.String("connectionId", c.ID()), slog.Int("displays", r.registry.CountRole(domain.RoleDisplay)))
}

func (r *Relay) handleFanOut(ctx context.Context, c *Connection, env *domain.Envelope) {
	r.FanOut(ctx, c, env)
}
