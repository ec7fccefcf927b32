package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"posDisplayWs/internal/modules/realtime/domain"
)

var (
	// ErrMaxAttempts is returned by Run when consecutive dial failures reach the configured limit.
	ErrMaxAttempts = errors.New("reconnect attempts exhausted")
	// ErrNotConnected is returned by Send while the socket is offline.
	ErrNotConnected = errors.New("socket not connected")
	// ErrSendBufferFull is returned by Send when the outbound queue is saturated.
	ErrSendBufferFull = errors.New("socket send buffer full")
)

const (
	writeWait         = 10 * time.Second
	defaultSendBuffer = 32
	defaultDelay      = 3 * time.Second
)

// SendFunc queues one frame on the live connection.
type SendFunc func(data []byte) error

// Hooks receive the socket lifecycle. Every hook is optional and runs on the socket goroutines.
type Hooks struct {
	OnConnect    func(send SendFunc)
	OnMessage    func(data []byte)
	OnDisconnect func(err error)
}

type Options struct {
	URL            string
	ReconnectDelay time.Duration
	// MaxAttempts caps consecutive failed dials. Zero retries forever.
	MaxAttempts  int
	PingInterval time.Duration
	SendBuffer   int
	Header       http.Header
	Dialer       *websocket.Dialer
}

// Socket keeps a websocket to the relay open, redialing on a fixed delay after every close.
type Socket struct {
	opts  Options
	hooks Hooks

	mu   sync.Mutex
	link *link
}

type link struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func New(opts Options, hooks Hooks) *Socket {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultDelay
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Socket{opts: opts, hooks: hooks}
}

// Run dials and serves connections until ctx is cancelled, which returns nil,
// or until MaxAttempts consecutive dials fail.
func (s *Socket) Run(ctx context.Context) error {
	failures := 0
	for {
		conn, _, err := s.opts.Dialer.DialContext(ctx, s.opts.URL, s.opts.Header)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			slog.Warn("relay dial failed", slog.String("url", s.opts.URL), slog.Int("attempt", failures), slog.Any("error", err))
			if s.opts.MaxAttempts > 0 && failures >= s.opts.MaxAttempts {
				return fmt.Errorf("%w: %d consecutive failures", ErrMaxAttempts, failures)
			}
		} else {
			failures = 0
			s.serve(ctx, conn)
			if ctx.Err() != nil {
				return nil
			}
		}

		if !s.wait(ctx) {
			return nil
		}
	}
}

// Connected reports whether a connection is live.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link != nil
}

// Send queues data without blocking.
func (s *Socket) Send(data []byte) error {
	s.mu.Lock()
	current := s.link
	s.mu.Unlock()
	if current == nil {
		return ErrNotConnected
	}
	select {
	case current.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendEnvelope encodes payload and queues it.
func (s *Socket) SendEnvelope(payload any) error {
	env, err := domain.Encode(payload)
	if err != nil {
		return err
	}
	return s.Send(env.Raw)
}

func (s *Socket) wait(ctx context.Context) bool {
	timer := time.NewTimer(s.opts.ReconnectDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Socket) serve(ctx context.Context, conn *websocket.Conn) {
	l := &link{conn: conn, send: make(chan []byte, s.opts.SendBuffer), done: make(chan struct{})}
	s.mu.Lock()
	s.link = l
	s.mu.Unlock()
	slog.Info("relay connected", slog.String("url", s.opts.URL))

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		_ = conn.Close()
	})
	defer stop()

	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		s.writeLoop(l)
	}()

	if s.hooks.OnConnect != nil {
		s.hooks.OnConnect(s.Send)
	}

	var readErr error
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}
		if s.hooks.OnMessage != nil {
			s.hooks.OnMessage(data)
		}
	}

	s.mu.Lock()
	s.link = nil
	s.mu.Unlock()
	close(l.done)
	_ = conn.Close()
	writer.Wait()

	if ctx.Err() != nil {
		readErr = nil
	}
	if readErr != nil && !websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		slog.Warn("relay connection lost", slog.String("url", s.opts.URL), slog.Any("error", readErr))
	} else {
		slog.Info("relay connection closed", slog.String("url", s.opts.URL))
	}
	if s.hooks.OnDisconnect != nil {
		s.hooks.OnDisconnect(readErr)
	}
}

func (s *Socket) writeLoop(l *link) {
	var tick <-chan time.Time
	if s.opts.PingInterval > 0 {
		ticker := time.NewTicker(s.opts.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-l.done:
			return
		case data := <-l.send:
			if err := s.write(l.conn, data); err != nil {
				slog.Warn("relay write failed", slog.Any("error", err))
				_ = l.conn.Close()
				return
			}
		case now := <-tick:
			ping, err := domain.Encode(domain.NewSignal(domain.TagPing, "", now.UnixMilli()))
			if err != nil {
				slog.Error("relay ping encode failed", slog.Any("error", err))
				continue
			}
			if err := s.write(l.conn, ping.Raw); err != nil {
				slog.Warn("relay ping failed", slog.Any("error", err))
				_ = l.conn.Close()
				return
			}
		}
	}
}

func (s *Socket) write(conn *websocket.Conn, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
