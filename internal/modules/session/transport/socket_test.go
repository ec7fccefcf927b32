package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posDisplayWs/internal/modules/realtime/domain"
)

type testRelay struct {
	server   *httptest.Server
	accepted atomic.Int32

	mu       sync.Mutex
	received [][]byte
	conns    []*websocket.Conn
}

func newTestRelay(t *testing.T, echo bool) *testRelay {
	t.Helper()
	relay := &testRelay{}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	relay.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		relay.accepted.Add(1)
		relay.mu.Lock()
		relay.conns = append(relay.conns, conn)
		relay.mu.Unlock()
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			relay.mu.Lock()
			relay.received = append(relay.received, data)
			relay.mu.Unlock()
			if echo {
				if err := conn.WriteMessage(mt, data); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(relay.server.Close)
	return relay
}

func (r *testRelay) url() string {
	return "ws" + strings.TrimPrefix(r.server.URL, "http")
}

func (r *testRelay) frames() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.received...)
}

func (r *testRelay) dropAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conn := range r.conns {
		_ = conn.Close()
	}
	r.conns = nil
}

func runSocket(t *testing.T, s *Socket) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	})
	return cancel, done
}

func TestSocketSendsOnConnectAndReceives(t *testing.T) {
	relay := newTestRelay(t, true)
	messages := make(chan []byte, 4)
	s := New(Options{URL: relay.url(), ReconnectDelay: 10 * time.Millisecond}, Hooks{
		OnConnect: func(send SendFunc) {
			_ = send([]byte(`{"type":"customer_display_connected"}`))
		},
		OnMessage: func(data []byte) { messages <- data },
	})
	runSocket(t, s)

	select {
	case data := <-messages:
		assert.JSONEq(t, `{"type":"customer_display_connected"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("no echo received")
	}
	assert.True(t, s.Connected())
}

func TestSocketSendWhileOffline(t *testing.T) {
	s := New(Options{URL: "ws://127.0.0.1:1/ws"}, Hooks{})
	assert.ErrorIs(t, s.Send([]byte(`{}`)), ErrNotConnected)
}

func TestSocketGivesUpAfterMaxAttempts(t *testing.T) {
	relay := newTestRelay(t, false)
	url := relay.url()
	relay.server.Close()

	s := New(Options{URL: url, ReconnectDelay: time.Millisecond, MaxAttempts: 3}, Hooks{})
	err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrMaxAttempts)
}

func TestSocketReconnectsAfterClose(t *testing.T) {
	relay := newTestRelay(t, false)
	var connects, disconnects atomic.Int32
	s := New(Options{URL: relay.url(), ReconnectDelay: 10 * time.Millisecond}, Hooks{
		OnConnect:    func(SendFunc) { connects.Add(1) },
		OnDisconnect: func(error) { disconnects.Add(1) },
	})
	runSocket(t, s)

	require.Eventually(t, func() bool { return connects.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	relay.dropAll()

	require.Eventually(t, func() bool { return connects.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, disconnects.Load(), int32(1))
	assert.Equal(t, int32(2), relay.accepted.Load())
}

func TestSocketCancelDuringRetryDelay(t *testing.T) {
	relay := newTestRelay(t, false)
	url := relay.url()
	relay.server.Close()

	s := New(Options{URL: url, ReconnectDelay: time.Hour}, Hooks{})
	cancel, done := runSocket(t, s)
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestSocketSendsPingEnvelopes(t *testing.T) {
	relay := newTestRelay(t, false)
	s := New(Options{URL: relay.url(), PingInterval: 10 * time.Millisecond}, Hooks{})
	runSocket(t, s)

	require.Eventually(t, func() bool {
		for _, frame := range relay.frames() {
			env, err := domain.ParseEnvelope(frame)
			if err == nil && env.Type == domain.TagPing {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSocketSendEnvelope(t *testing.T) {
	relay := newTestRelay(t, false)
	s := New(Options{URL: relay.url()}, Hooks{})
	runSocket(t, s)
	require.Eventually(t, s.Connected, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.SendEnvelope(domain.NewSignal(domain.TagRestoreCartDisplay, "", 1)))
	require.Eventually(t, func() bool { return len(relay.frames()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.JSONEq(t, `{"type":"restore_cart_display","timestamp":1}`, string(relay.frames()[0]))
}
