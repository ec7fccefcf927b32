package transport

import (
	"github.com/labstack/echo/v4"

	"posDisplayWs/internal/modules/realtime/application/usecase"
	"posDisplayWs/internal/modules/realtime/infrastructure"
	"posDisplayWs/internal/shared/auth"
)

// Routes collects what the HTTP surface needs.
type Routes struct {
	Relay      *infrastructure.Relay
	Metrics    *infrastructure.Metrics
	Broadcast  *usecase.BroadcastUseCase
	Validator  auth.TokenValidator
	WSPath     string
	SendBuffer int
}

// Register mounts the websocket endpoint, the REST signal hook, health and metrics.
func Register(e *echo.Echo, r Routes) {
	path := r.WSPath
	if path == "" {
		path = "/ws"
	}
	e.GET(path, NewWebsocketHandler(r.Relay, r.SendBuffer))
	e.GET("/healthz", NewHealthHandler(r.Relay))
	if r.Broadcast != nil {
		e.POST("/api/display/events", NewBroadcastHTTPHandler(r.Broadcast, r.Validator))
	}
	if r.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(r.Metrics.Handler()))
	}
}
