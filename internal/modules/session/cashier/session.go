package cashier

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"posDisplayWs/internal/modules/realtime/domain"
	"posDisplayWs/internal/shared/clock"
)

var (
	// ErrNotDelivered wraps a send failure after the local state change was applied.
	ErrNotDelivered     = errors.New("display update not delivered")
	ErrEmptyCart        = errors.New("active cart is empty")
	ErrNoPendingPayment = errors.New("no pending qr payment")
)

// Sender pushes one wire message to the relay without waiting for delivery.
type Sender interface {
	SendEnvelope(payload any) error
}

// Session owns the cashier's orders and mirrors the active one to the customer display.
type Session struct {
	sender Sender
	clock  clock.Clock
	taxBps int
	newID  func() string

	mu      sync.Mutex
	book    *domain.OrderBook
	pending *domain.QRPaymentSnapshot
}

func NewSession(sender Sender, clk clock.Clock, taxBps int) *Session {
	if clk == nil {
		clk = clock.Real()
	}
	return &Session{
		sender: sender,
		clock:  clk,
		taxBps: taxBps,
		newID:  uuid.NewString,
		book:   domain.NewOrderBook(),
	}
}

// OpenOrder starts an empty order. The first order opened becomes the mirrored one.
func (s *Session) OpenOrder(orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.book.Open(orderID); err != nil {
		return err
	}
	if !s.book.IsActive(orderID) {
		return nil
	}
	return s.pushCartLocked()
}

// Activate switches the mirrored order and pushes its cart.
func (s *Session) Activate(orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.book.Activate(orderID); err != nil {
		return err
	}
	return s.pushCartLocked()
}

// CloseOrder discards an order. Closing the active one mirrors whichever order takes its place.
func (s *Session) CloseOrder(orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasActive := s.book.IsActive(orderID)
	if err := s.book.Close(orderID); err != nil {
		return err
	}
	if !wasActive {
		return nil
	}
	return s.pushCartLocked()
}

func (s *Session) AddItem(orderID string, product domain.Product, qty int) error {
	return s.mutate(orderID, func(cart *domain.Cart) error { return cart.Add(product, qty) })
}

// SetQuantity changes a line; zero or less removes it.
func (s *Session) SetQuantity(orderID string, productID int64, qty int) error {
	return s.mutate(orderID, func(cart *domain.Cart) error { return cart.SetQuantity(productID, qty) })
}

func (s *Session) RemoveItem(orderID string, productID int64) error {
	return s.mutate(orderID, func(cart *domain.Cart) error { return cart.Remove(productID) })
}

func (s *Session) ClearCart(orderID string) error {
	return s.mutate(orderID, func(cart *domain.Cart) error {
		cart.Clear()
		return nil
	})
}

// BeginQRPayment shows a QR code for the active cart total. The cart itself is kept.
func (s *Session) BeginQRPayment(qrCodeURL, paymentMethod string) (domain.QRPaymentSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, cart, err := s.book.Active()
	if err != nil {
		return domain.QRPaymentSnapshot{}, err
	}
	now := s.clock.Now()
	snapshot := cart.Snapshot(s.taxBps, now)
	if snapshot.Empty() {
		return domain.QRPaymentSnapshot{}, ErrEmptyCart
	}
	qr := domain.QRPaymentSnapshot{
		QRCodeURL:       strings.TrimSpace(qrCodeURL),
		Amount:          snapshot.Total.Float(),
		PaymentMethod:   strings.TrimSpace(paymentMethod),
		TransactionUUID: s.newID(),
		Timestamp:       now.UnixMilli(),
	}
	s.pending = &qr
	return qr, s.send(domain.NewQRPayment(qr))
}

// CancelQRPayment withdraws the pending QR code from the display.
func (s *Session) CancelQRPayment() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return ErrNoPendingPayment
	}
	txn := s.pending.TransactionUUID
	s.pending = nil
	return s.send(domain.NewSignal(domain.TagQRPaymentCancelled, txn, s.clock.Now().UnixMilli()))
}

// CompletePayment announces success for the pending transaction, if any, then empties the active cart.
func (s *Session) CompletePayment() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, cart, err := s.book.Active()
	if err != nil {
		return err
	}
	var txn string
	if s.pending != nil {
		txn = s.pending.TransactionUUID
	}
	s.pending = nil
	cart.Clear()

	sendErr := s.send(domain.NewSignal(domain.TagPaymentSuccess, txn, s.clock.Now().UnixMilli()))
	return errors.Join(sendErr, s.pushCartLocked())
}

// RestoreCartDisplay drops any QR code from the display and shows the cart again.
func (s *Session) RestoreCartDisplay() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	return s.send(domain.NewSignal(domain.TagRestoreCartDisplay, "", s.clock.Now().UnixMilli()))
}

// Resync re-sends the current display state. Call it after every (re)connect.
func (s *Session) Resync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return s.send(domain.NewQRPayment(*s.pending))
	}
	if _, _, err := s.book.Active(); err != nil {
		return nil
	}
	return s.pushCartLocked()
}

// Snapshot returns the active cart as it would be mirrored.
func (s *Session) Snapshot() (domain.CartSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, cart, err := s.book.Active()
	if err != nil {
		return domain.CartSnapshot{}, err
	}
	return cart.Snapshot(s.taxBps, s.clock.Now()), nil
}

// Pending returns the outstanding QR payment.
func (s *Session) Pending() (domain.QRPaymentSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return domain.QRPaymentSnapshot{}, false
	}
	return *s.pending, true
}

func (s *Session) mutate(orderID string, apply func(*domain.Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, err := s.book.Cart(orderID)
	if err != nil {
		return err
	}
	if err := apply(cart); err != nil {
		return err
	}
	if !s.book.IsActive(orderID) {
		return nil
	}
	return s.pushCartLocked()
}

func (s *Session) pushCartLocked() error {
	var snapshot domain.CartSnapshot
	if _, cart, err := s.book.Active(); err == nil {
		snapshot = cart.Snapshot(s.taxBps, s.clock.Now())
	} else {
		snapshot = domain.NewCart().Snapshot(s.taxBps, s.clock.Now())
	}
	return s.send(domain.NewCartUpdate(snapshot, false))
}

func (s *Session) send(payload any) error {
	if s.sender == nil {
		return fmt.Errorf("%w: no sender", ErrNotDelivered)
	}
	if err := s.sender.SendEnvelope(payload); err != nil {
		slog.Warn("cashier display update not sent", slog.Any("error", err))
		return fmt.Errorf("%w: %w", ErrNotDelivered, err)
	}
	return nil
}
