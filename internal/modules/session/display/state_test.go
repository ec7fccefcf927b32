package display

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posDisplayWs/internal/modules/realtime/domain"
	"posDisplayWs/internal/shared/clock"
)

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestState(t *testing.T) (*State, *clock.Fake, *[]View) {
	t.Helper()
	fake := clock.NewFake(start)
	var views []View
	return NewState(fake, DefaultQRTimeout, func(v View) { views = append(views, v) }), fake, &views
}

func frame(t *testing.T, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return data
}

func coffeeCart(qty int) domain.CartSnapshot {
	cart := domain.NewCart()
	_ = cart.Add(domain.Product{ID: 1, Name: "Coffee", Price: domain.MustParseMoney("2.50")}, qty)
	return cart.Snapshot(1300, start)
}

func qr(txn string) domain.QRPayment {
	return domain.NewQRPayment(domain.QRPaymentSnapshot{
		QRCodeURL:       "https://pay.example/qr/" + txn,
		Amount:          100000,
		PaymentMethod:   "qr",
		TransactionUUID: txn,
		Timestamp:       start.UnixMilli(),
	})
}

func TestCartUpdateShowsCart(t *testing.T) {
	s, _, views := newTestState(t)

	require.NoError(t, s.Handle(frame(t, domain.NewCartUpdate(coffeeCart(1), false))))
	assert.Equal(t, ShowingCart, s.View().Phase)

	require.NoError(t, s.Handle(frame(t, domain.NewCartUpdate(domain.CartSnapshot{}, false))))
	assert.Equal(t, Idle, s.View().Phase)
	assert.Len(t, *views, 2)
}

func TestLastSeenCartMatchesCashier(t *testing.T) {
	s, _, _ := newTestState(t)
	require.NoError(t, s.Handle(frame(t, domain.NewCartUpdate(coffeeCart(1), false))))
	require.NoError(t, s.Handle(frame(t, domain.NewCartUpdate(coffeeCart(2), false))))

	items := s.View().Cart.Cart
	require.Len(t, items, 1)
	assert.Equal(t, domain.CartItem{ID: 1, Name: "Coffee", Price: domain.MustParseMoney("2.50"), Quantity: 2, Total: domain.MustParseMoney("5.00")}, items[0])
}

func TestQRPaymentTransitionsImmediately(t *testing.T) {
	s, _, _ := newTestState(t)
	require.NoError(t, s.Handle(frame(t, domain.NewCartUpdate(coffeeCart(1), false))))

	require.NoError(t, s.Handle(frame(t, qr("abc"))))
	view := s.View()
	assert.Equal(t, ShowingQR, view.Phase)
	require.NotNil(t, view.QR)
	assert.Equal(t, "abc", view.QR.TransactionUUID)

	require.NoError(t, s.Handle(frame(t, qr("def"))))
	assert.Equal(t, "def", s.View().QR.TransactionUUID)
}

func TestQRTimeoutFiresExactlyAtDeadline(t *testing.T) {
	s, fake, _ := newTestState(t)
	require.NoError(t, s.Handle(frame(t, qr("abc"))))

	fake.Advance(DefaultQRTimeout - time.Millisecond)
	assert.Equal(t, ShowingQR, s.View().Phase)

	fake.Advance(time.Millisecond)
	view := s.View()
	assert.Equal(t, Idle, view.Phase)
	assert.Nil(t, view.QR)
}

func TestQRTimeoutRearmsOnNewQR(t *testing.T) {
	s, fake, _ := newTestState(t)
	require.NoError(t, s.Handle(frame(t, qr("abc"))))
	fake.Advance(4 * time.Minute)
	require.NoError(t, s.Handle(frame(t, qr("def"))))

	fake.Advance(2 * time.Minute)
	assert.Equal(t, ShowingQR, s.View().Phase)

	fake.Advance(3 * time.Minute)
	assert.Equal(t, Idle, s.View().Phase)
	assert.Equal(t, 0, fake.Pending())
}

func TestCancelClearsQRBeforeTimeout(t *testing.T) {
	s, fake, _ := newTestState(t)
	require.NoError(t, s.Handle(frame(t, domain.NewCartUpdate(coffeeCart(1), false))))
	require.NoError(t, s.Handle(frame(t, qr("abc"))))

	fake.Advance(10 * time.Second)
	require.NoError(t, s.Handle(frame(t, domain.NewSignal(domain.TagQRPaymentCancelled, "abc", fake.Now().UnixMilli()))))

	view := s.View()
	assert.Equal(t, ShowingCart, view.Phase)
	assert.Nil(t, view.QR)
	assert.Equal(t, 0, fake.Pending())
}

func TestCancelForOtherTransactionIgnored(t *testing.T) {
	s, _, views := newTestState(t)
	require.NoError(t, s.Handle(frame(t, qr("abc"))))
	before := len(*views)

	require.NoError(t, s.Handle(frame(t, domain.NewSignal(domain.TagCloseQRPopup, "other", 0))))
	assert.Equal(t, ShowingQR, s.View().Phase)
	assert.Len(t, *views, before)

	require.NoError(t, s.Handle(frame(t, domain.NewSignal(domain.TagCloseQRPopup, "", 0))))
	assert.Equal(t, Idle, s.View().Phase)
}

func TestPaymentSuccessForOtherTransactionIgnored(t *testing.T) {
	s, fake, views := newTestState(t)
	require.NoError(t, s.Handle(frame(t, domain.NewCartUpdate(coffeeCart(1), false))))
	require.NoError(t, s.Handle(frame(t, qr("abc"))))
	before := len(*views)

	require.NoError(t, s.Handle(frame(t, domain.NewSignal(domain.TagPaymentSuccess, "other-lane", 0))))
	view := s.View()
	assert.Equal(t, ShowingQR, view.Phase)
	require.NotNil(t, view.QR)
	assert.Equal(t, "abc", view.QR.TransactionUUID)
	assert.Len(t, view.Cart.Cart, 1)
	assert.Empty(t, view.LastPaidTransaction)
	assert.Len(t, *views, before)
	assert.Equal(t, 1, fake.Pending())

	require.NoError(t, s.Handle(frame(t, domain.NewSignal(domain.TagPaymentSuccess, "abc", 0))))
	assert.Equal(t, Idle, s.View().Phase)
	assert.Equal(t, "abc", s.View().LastPaidTransaction)
}

func TestCartUpdateWithUnroundedTotals(t *testing.T) {
	s, _, _ := newTestState(t)
	raw := []byte(`{"type":"cart_update","cart":[{"id":1,"name":"Gum","price":"0.10","quantity":3,"total":"0.30000000000000004"}],` +
		`"subtotal":"0.30000000000000004","tax":"0.039","total":"0.339","timestamp":1}`)

	require.NoError(t, s.Handle(raw))
	view := s.View()
	assert.Equal(t, ShowingCart, view.Phase)
	require.Len(t, view.Cart.Cart, 1)
	assert.Equal(t, "0.30", view.Cart.Cart[0].Total.String())
	assert.Equal(t, "0.04", view.Cart.Tax.String())
	assert.Equal(t, "0.34", view.Cart.Total.String())
}

func TestCartUpdateDuringQR(t *testing.T) {
	s, _, _ := newTestState(t)
	require.NoError(t, s.Handle(frame(t, qr("abc"))))

	require.NoError(t, s.Handle(frame(t, domain.NewCartUpdate(coffeeCart(3), false))))
	view := s.View()
	assert.Equal(t, ShowingQR, view.Phase)
	assert.Equal(t, 3, view.Cart.Cart[0].Quantity)

	require.NoError(t, s.Handle(frame(t, domain.NewCartUpdate(coffeeCart(2), true))))
	view = s.View()
	assert.Equal(t, ShowingCart, view.Phase)
	assert.Nil(t, view.QR)
}

func TestRestoreCartDisplay(t *testing.T) {
	s, fake, _ := newTestState(t)
	require.NoError(t, s.Handle(frame(t, domain.NewCartUpdate(coffeeCart(1), false))))
	require.NoError(t, s.Handle(frame(t, qr("abc"))))

	require.NoError(t, s.Handle(frame(t, domain.NewSignal(domain.TagRestoreCartDisplay, "", 0))))
	assert.Equal(t, ShowingCart, s.View().Phase)

	fake.Advance(DefaultQRTimeout)
	assert.Equal(t, ShowingCart, s.View().Phase)
}

func TestPaymentSuccessClearsEverything(t *testing.T) {
	s, _, _ := newTestState(t)
	require.NoError(t, s.Handle(frame(t, domain.NewCartUpdate(coffeeCart(1), false))))
	require.NoError(t, s.Handle(frame(t, qr("abc"))))

	require.NoError(t, s.Handle(frame(t, domain.NewSignal(domain.TagPaymentSuccess, "", 0))))
	view := s.View()
	assert.Equal(t, Idle, view.Phase)
	assert.True(t, view.Cart.Empty())
	assert.Equal(t, "abc", view.LastPaidTransaction)
}

func TestResetReturnsToIdle(t *testing.T) {
	s, fake, _ := newTestState(t)
	require.NoError(t, s.Handle(frame(t, domain.NewCartUpdate(coffeeCart(1), false))))
	require.NoError(t, s.Handle(frame(t, qr("abc"))))

	s.Reset()
	assert.Equal(t, Idle, s.View().Phase)
	assert.True(t, s.View().Cart.Empty())
	assert.Equal(t, 0, fake.Pending())
}

func TestHandleRejectsGarbage(t *testing.T) {
	s, _, views := newTestState(t)
	assert.ErrorIs(t, s.Handle([]byte("not json")), domain.ErrMalformedEnvelope)
	assert.ErrorIs(t, s.Handle([]byte(`{"type":"bogus"}`)), domain.ErrUnknownTag)
	assert.NoError(t, s.Handle([]byte(`{"type":"pong"}`)))
	assert.Empty(t, *views)
	assert.Equal(t, Idle, s.View().Phase)
}
