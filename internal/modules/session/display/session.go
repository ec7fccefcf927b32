package display

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"posDisplayWs/internal/modules/realtime/domain"
	"posDisplayWs/internal/modules/session/transport"
	"posDisplayWs/internal/shared/clock"
)

// Session connects a display State to the relay. It registers on every connect and starts from Idle after every disconnect.
type Session struct {
	state  *State
	socket *transport.Socket
	clock  clock.Clock
}

func NewSession(opts transport.Options, clk clock.Clock, qrTimeout time.Duration, render func(View)) *Session {
	if clk == nil {
		clk = clock.Real()
	}
	s := &Session{state: NewState(clk, qrTimeout, render), clock: clk}
	s.socket = transport.New(opts, transport.Hooks{
		OnConnect:    s.register,
		OnMessage:    s.receive,
		OnDisconnect: func(error) { s.state.Reset() },
	})
	return s
}

// Run blocks until ctx is cancelled or reconnect attempts are exhausted.
func (s *Session) Run(ctx context.Context) error {
	return s.socket.Run(ctx)
}

func (s *Session) State() *State { return s.state }

func (s *Session) register(send transport.SendFunc) {
	env, err := domain.Encode(domain.NewSignal(domain.TagCustomerDisplayConnected, "", s.clock.Now().UnixMilli()))
	if err != nil {
		slog.Error("display registration encode failed", slog.Any("error", err))
		return
	}
	if err := send(env.Raw); err != nil {
		slog.Warn("display registration not sent", slog.Any("error", err))
	}
}

func (s *Session) receive(data []byte) {
	if err := s.state.Handle(data); err != nil {
		if errors.Is(err, domain.ErrUnknownTag) || errors.Is(err, errUnhandledTag) {
			slog.Debug("display ignored envelope", slog.Any("error", err))
			return
		}
		slog.Warn("display dropped envelope", slog.Int("bytes", len(data)), slog.Any("error", err))
	}
}
