package domain

import "strings"

// PaymentEvent is a payment status change reported by the payment provider integration.
type PaymentEvent struct {
	Topic           string
	TransactionUUID string
	Status          string
	Amount          float64
}

// PaymentOutcome classifies a provider status.
type PaymentOutcome int

const (
	PaymentPending PaymentOutcome = iota
	PaymentSucceeded
	PaymentAbandoned
)

// Outcome maps provider statuses onto what the display has to do.
func (e PaymentEvent) Outcome() PaymentOutcome {
	switch strings.ToUpper(strings.TrimSpace(e.Status)) {
	case "COMPLETE", "COMPLETED", "PAID", "SUCCESS":
		return PaymentSucceeded
	case "FAILED", "CANCELLED", "CANCELED", "EXPIRED", "NOT_FOUND":
		return PaymentAbandoned
	default:
		return PaymentPending
	}
}

// Signal returns the control envelope payload for the event, or false when nothing must be sent.
func (e PaymentEvent) Signal(timestamp int64) (Signal, bool) {
	switch e.Outcome() {
	case PaymentSucceeded:
		sig := NewSignal(TagPaymentSuccess, e.TransactionUUID, timestamp)
		sig.Amount = e.Amount
		return sig, true
	case PaymentAbandoned:
		return NewSignal(TagQRPaymentCancelled, e.TransactionUUID, timestamp), true
	default:
		return Signal{}, false
	}
}
