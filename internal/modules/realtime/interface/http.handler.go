package transport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"posDisplayWs/internal/modules/realtime/domain"
	"posDisplayWs/internal/modules/realtime/infrastructure"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewWebsocketHandler upgrades GET /ws and hands the socket to the relay.
// An optional ?transaction=<uuid> narrows scoped control signals to that transaction.
func NewWebsocketHandler(relay *infrastructure.Relay, sendBuffer int) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		peerIP := c.RealIP()
		scope := strings.TrimSpace(c.QueryParam("transaction"))

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			slog.Error("ws handler upgrade failed", slog.String("ip", peerIP), slog.String("reqID", requestID), slog.Any("error", err))
			return err
		}

		client := infrastructure.NewConnection(relay, conn, scope, peerIP, sendBuffer)
		openedAt := time.Now()
		client.AddCloseHook(func(c *infrastructure.Connection) {
			slog.Info("ws session ended", slog.String("connectionId", c.ID()), slog.String("role", c.Role()), slog.Duration("duration", time.Since(openedAt)))
		})
		relay.Attach(client)

		go client.WritePump()
		go client.ReadPump()

		slog.Info("ws handler upgrade success", slog.String("connectionId", client.ID()), slog.String("scope", scope), slog.String("ip", peerIP), slog.String("reqID", requestID))
		return nil
	}
}

// HealthResponse reports relay liveness for probes.
type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Displays    int    `json:"displays"`
}

func NewHealthHandler(relay *infrastructure.Relay) echo.HandlerFunc {
	return func(c echo.Context) error {
		registry := relay.Registry()
		return c.JSON(http.StatusOK, HealthResponse{
			Status:      "ok",
			Connections: registry.Len(),
			Displays:    registry.CountRole(domain.RoleDisplay),
		})
	}
}
