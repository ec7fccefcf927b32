package transport

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"posDisplayWs/internal/modules/realtime/application/usecase"
	"posDisplayWs/internal/modules/realtime/domain"
	"posDisplayWs/internal/shared/auth"
	"posDisplayWs/internal/shared/httputil"
)

// BroadcastRequest is the body of POST /api/display/events.
type BroadcastRequest struct {
	Type            string  `json:"type"`
	TransactionUUID string  `json:"transactionUuid,omitempty"`
	Amount          float64 `json:"amount,omitempty"`
}

// BroadcastResponse reports how many sessions received the signal.
type BroadcastResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Delivered int    `json:"delivered"`
}

var broadcastErrors = httputil.NewErrorMapper().
	WithMapping(auth.ErrMissingToken, http.StatusUnauthorized, "missing token").
	WithMapping(auth.ErrInvalidToken, http.StatusUnauthorized, "invalid token").
	WithMapping(auth.ErrForbidden, http.StatusForbidden, "forbidden").
	WithMapping(usecase.ErrTagNotAllowed, http.StatusBadRequest, "type not allowed").
	WithMapping(domain.ErrMalformedEnvelope, http.StatusBadRequest, "invalid envelope")

// NewBroadcastHTTPHandler lets backend services (payment webhooks, admin tools) push control
// signals to every display. When validator is nil the endpoint is open.
func NewBroadcastHTTPHandler(broadcastUC *usecase.BroadcastUseCase, validator auth.TokenValidator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if validator != nil {
			if _, err := validator.Validate(auth.ExtractToken(c.Request(), "token")); err != nil {
				info := broadcastErrors.Map(err)
				slog.Warn("broadcast http: auth failed", slog.String("ip", c.RealIP()), slog.Any("error", err))
				return echo.NewHTTPError(info.Status, info.Message)
			}
		}

		var req BroadcastRequest
		if err := c.Bind(&req); err != nil {
			slog.Warn("broadcast http: invalid request body", slog.Any("error", err))
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if req.Type == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "type field is required")
		}

		sig := domain.NewSignal(domain.NormalizeTag(req.Type), req.TransactionUUID, 0)
		sig.Amount = req.Amount
		delivered, err := broadcastUC.Signal(c.Request().Context(), sig)
		if err != nil {
			info := broadcastErrors.Map(err)
			slog.Warn("broadcast http: rejected", slog.String("type", req.Type), slog.Any("error", err))
			return echo.NewHTTPError(info.Status, info.Message)
		}

		slog.Info("broadcast http: signal sent",
			slog.String("type", sig.Type.String()),
			slog.String("transactionUuid", sig.TransactionUUID),
			slog.Int("delivered", delivered),
		)

		return c.JSON(http.StatusOK, BroadcastResponse{
			Success:   true,
			Message:   "signal broadcasted",
			Type:      sig.Type.String(),
			Delivered: delivered,
		})
	}
}
