package infrastructure

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("connection send buffer full")
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = 1 << 16
)

// Connection is one live websocket peer of the relay.
type Connection struct {
	id         string
	relay      *Relay
	conn       *websocket.Conn
	send       chan []byte
	scope      string
	remoteAddr string

	mu     sync.Mutex
	role   string
	closed bool

	closeOnce  sync.Once
	closeHooks []func(*Connection)
	hookMu     sync.Mutex
}

// NewConnection wraps an upgraded websocket. scope optionally narrows scoped control signals to one transaction.
func NewConnection(relay *Relay, conn *websocket.Conn, scope, remoteAddr string, buf int) *Connection {
	if buf <= 0 {
		buf = 16
	}
	return &Connection{
		id:         uuid.NewString(),
		relay:      relay,
		conn:       conn,
		send:       make(chan []byte, buf),
		scope:      strings.TrimSpace(scope),
		remoteAddr: remoteAddr,
	}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) Scope() string { return c.scope }

func (c *Connection) RemoteAddr() string { return c.remoteAddr }

// Role returns the registered role, empty until the peer identifies itself.
func (c *Connection) Role() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

func (c *Connection) SetRole(role string) {
	c.mu.Lock()
	c.role = strings.TrimSpace(role)
	c.mu.Unlock()
}

// Closed reports whether the connection has been torn down.
func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Enqueue hands data to the write pump without blocking.
func (c *Connection) Enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.invokeCloseHooks()
	})
}

// AddCloseHook registers a callback that will be executed once when the connection closes.
func (c *Connection) AddCloseHook(fn func(*Connection)) {
	if fn == nil {
		return
	}
	c.hookMu.Lock()
	c.closeHooks = append(c.closeHooks, fn)
	c.hookMu.Unlock()
}

func (c *Connection) invokeCloseHooks() {
	c.hookMu.Lock()
	hooks := append([]func(*Connection){}, c.closeHooks...)
	c.closeHooks = nil
	c.hookMu.Unlock()

	for _, hook := range hooks {
		func(h func(*Connection)) {
			defer func() {
				if r := recover(); r != nil {
					slog.Warn("ws close hook panic", slog.String("connectionId", c.id), slog.Any("error", r))
				}
			}()
			h(c)
		}(hook)
	}
}

// WritePump drains the send buffer to the socket and keeps the peer alive with pings.
func (c *Connection) WritePump() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("websocket write error", slog.String("connectionId", c.id), slog.Any("error", err))
				go c.relay.Detach(c)
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.Warn("websocket ping error", slog.String("connectionId", c.id), slog.Any("error", err))
				go c.relay.Detach(c)
				return
			}
		}
	}
}

// ReadPump feeds every inbound frame to the relay until the peer goes away.
func (c *Connection) ReadPump() {
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	defer c.relay.Detach(c)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read error", slog.String("connectionId", c.id), slog.String("role", c.Role()), slog.Any("error", err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.relay.HandleRaw(c, data)
	}
}
