package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"posDisplayWs/internal/modules/realtime/application/port"
	"posDisplayWs/internal/modules/realtime/domain"
)

// ErrTagNotAllowed is returned when a caller tries to inject a tag reserved for cashier sessions.
var ErrTagNotAllowed = errors.New("envelope tag not allowed from server")

type BroadcastUseCase struct {
	broadcaster port.Broadcaster
	now         func() time.Time
}

func NewBroadcastUseCase(b port.Broadcaster) *BroadcastUseCase {
	return &BroadcastUseCase{broadcaster: b, now: time.Now}
}

func (uc *BroadcastUseCase) Execute(ctx context.Context, env *domain.Envelope) int {
	return uc.broadcaster.Broadcast(ctx, env)
}

// Signal broadcasts a server-originated control signal and returns the number of deliveries.
func (uc *BroadcastUseCase) Signal(ctx context.Context, sig domain.Signal) (int, error) {
	sig.Type = domain.NormalizeTag(sig.Type.String())
	if !sig.Type.ServerOriginated() {
		return 0, fmt.Errorf("%w: %q", ErrTagNotAllowed, sig.Type)
	}
	if sig.Timestamp == 0 {
		sig.Timestamp = uc.now().UnixMilli()
	}
	env, err := domain.Encode(sig)
	if err != nil {
		return 0, err
	}
	return uc.Execute(ctx, env), nil
}
