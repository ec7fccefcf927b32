package display

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posDisplayWs/internal/modules/realtime/domain"
	"posDisplayWs/internal/modules/session/transport"
	"posDisplayWs/internal/shared/clock"
)

func expectRegistration(t *testing.T, registered <-chan domain.Tag) {
	t.Helper()
	select {
	case tag := <-registered:
		assert.Equal(t, domain.TagCustomerDisplayConnected, tag)
	case <-time.After(2 * time.Second):
		t.Fatal("display did not register")
	}
}

func TestSessionRegistersOnEveryConnect(t *testing.T) {
	registered := make(chan domain.Tag, 4)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	var server *websocket.Conn
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		server = conn
		mu.Unlock()
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if env, err := domain.ParseEnvelope(data); err == nil {
			registered <- env.Type
		}
		cart, _ := domain.Encode(domain.NewCartUpdate(coffeeCart(2), false))
		_ = conn.WriteMessage(websocket.TextMessage, cart.Raw)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	fake := clock.NewFake(start)
	views := make(chan View, 16)
	session := NewSession(transport.Options{
		URL:            "ws" + strings.TrimPrefix(srv.URL, "http"),
		ReconnectDelay: 20 * time.Millisecond,
	}, fake, time.Minute, func(v View) { views <- v })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	expectRegistration(t, registered)
	select {
	case view := <-views:
		assert.Equal(t, ShowingCart, view.Phase)
	case <-time.After(2 * time.Second):
		t.Fatal("display did not render cart")
	}

	mu.Lock()
	_ = server.Close()
	mu.Unlock()

	// Disconnect resets to Idle, then the redial registers again and the next snapshot is rendered.
	sawIdle := false
	deadline := time.After(2 * time.Second)
	for !sawIdle {
		select {
		case view := <-views:
			sawIdle = view.Phase == Idle
		case <-deadline:
			t.Fatal("display did not reset after disconnect")
		}
	}
	expectRegistration(t, registered)
	require.Eventually(t, func() bool { return session.State().View().Phase == ShowingCart }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
}
