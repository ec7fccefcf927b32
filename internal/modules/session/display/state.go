package display

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"posDisplayWs/internal/modules/realtime/domain"
	"posDisplayWs/internal/shared/clock"
)

// DefaultQRTimeout clears an unanswered QR code.
const DefaultQRTimeout = 5 * time.Minute

var errUnhandledTag = errors.New("display: unhandled tag")

// Phase is what the customer display is rendering.
type Phase int

const (
	Idle Phase = iota
	ShowingCart
	ShowingQR
)

func (p Phase) String() string {
	switch p {
	case ShowingCart:
		return "showing_cart"
	case ShowingQR:
		return "showing_qr"
	default:
		return "idle"
	}
}

// View is an immutable copy of the display state handed to renderers.
type View struct {
	Phase               Phase
	Cart                domain.CartSnapshot
	QR                  *domain.QRPaymentSnapshot
	LastPaidTransaction string
}

// State is the display state machine. Safe for concurrent use; the QR timeout fires on the clock's goroutine.
type State struct {
	clock     clock.Clock
	qrTimeout time.Duration
	onChange  func(View)

	mu         sync.Mutex
	phase      Phase
	cart       domain.CartSnapshot
	qr         *domain.QRPaymentSnapshot
	lastPaid   string
	generation uint64
	timer      clock.Timer
}

func NewState(clk clock.Clock, qrTimeout time.Duration, onChange func(View)) *State {
	if clk == nil {
		clk = clock.Real()
	}
	if qrTimeout <= 0 {
		qrTimeout = DefaultQRTimeout
	}
	return &State{clock: clk, qrTimeout: qrTimeout, onChange: onChange}
}

// Handle parses and applies one inbound frame. Pongs and tags the display does not render are ignored.
func (s *State) Handle(data []byte) error {
	env, err := domain.ParseEnvelope(data)
	if err != nil {
		return err
	}
	return s.Apply(env)
}

// Apply advances the machine with env.
func (s *State) Apply(env *domain.Envelope) error {
	s.mu.Lock()
	changed, err := s.applyLocked(env)
	view := s.viewLocked()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if changed {
		s.notify(view)
	}
	return nil
}

// Reset drops all state and disarms the QR timeout. Used when the transport closes.
func (s *State) Reset() {
	s.mu.Lock()
	s.disarmLocked()
	s.qr = nil
	s.cart = domain.CartSnapshot{}
	s.phase = Idle
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(view)
}

// View returns the current state.
func (s *State) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *State) applyLocked(env *domain.Envelope) (bool, error) {
	switch env.Type {
	case domain.TagCartUpdate:
		var update domain.CartUpdate
		if err := env.Decode(&update); err != nil {
			return false, err
		}
		s.cart = update.CartSnapshot.Clone()
		if s.phase == ShowingQR && !update.RestoreDisplay {
			return true, nil
		}
		s.clearQRLocked()
		s.phase = s.cartPhaseLocked()
		return true, nil

	case domain.TagQRPayment:
		var payment domain.QRPayment
		if err := env.Decode(&payment); err != nil {
			return false, err
		}
		snapshot := payment.QRPaymentSnapshot
		s.qr = &snapshot
		s.phase = ShowingQR
		s.armLocked()
		return true, nil

	case domain.TagQRPaymentCancelled, domain.TagCloseQRPopup:
		if s.qr == nil {
			return false, nil
		}
		if env.TransactionUUID != "" && env.TransactionUUID != s.qr.TransactionUUID {
			slog.Debug("display ignored signal for another transaction", slog.String("type", env.Type.String()), slog.String("transactionUuid", env.TransactionUUID))
			return false, nil
		}
		s.clearQRLocked()
		s.phase = s.cartPhaseLocked()
		return true, nil

	case domain.TagPaymentSuccess:
		if env.TransactionUUID != "" && s.qr != nil && env.TransactionUUID != s.qr.TransactionUUID {
			slog.Debug("display ignored signal for another transaction", slog.String("type", env.Type.String()), slog.String("transactionUuid", env.TransactionUUID))
			return false, nil
		}
		txn := env.TransactionUUID
		if txn == "" && s.qr != nil {
			txn = s.qr.TransactionUUID
		}
		s.clearQRLocked()
		s.cart = domain.CartSnapshot{}
		s.lastPaid = txn
		s.phase = Idle
		return true, nil

	case domain.TagRestoreCartDisplay:
		s.clearQRLocked()
		s.phase = s.cartPhaseLocked()
		return true, nil

	case domain.TagPong, domain.TagPing, domain.TagCustomerDisplayConnected:
		return false, nil
	}
	return false, fmt.Errorf("%w: %s", errUnhandledTag, env.Type)
}

func (s *State) cartPhaseLocked() Phase {
	if s.cart.Empty() {
		return Idle
	}
	return ShowingCart
}

func (s *State) clearQRLocked() {
	s.disarmLocked()
	s.qr = nil
}

func (s *State) armLocked() {
	s.disarmLocked()
	s.generation++
	gen := s.generation
	s.timer = s.clock.AfterFunc(s.qrTimeout, func() { s.expire(gen) })
}

func (s *State) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
}

func (s *State) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.phase != ShowingQR {
		s.mu.Unlock()
		return
	}
	slog.Info("display qr payment timed out", slog.String("transactionUuid", s.qr.TransactionUUID))
	s.timer = nil
	s.qr = nil
	s.cart = domain.CartSnapshot{}
	s.phase = Idle
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(view)
}

func (s *State) viewLocked() View {
	view := View{Phase: s.phase, Cart: s.cart.Clone(), LastPaidTransaction: s.lastPaid}
	if s.qr != nil {
		qr := *s.qr
		view.QR = &qr
	}
	return view
}

func (s *State) notify(view View) {
	if s.onChange != nil {
		s.onChange(view)
	}
}
