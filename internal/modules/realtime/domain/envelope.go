package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedEnvelope indicates the payload is not a JSON object with a string type tag.
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrUnknownTag indicates a well-formed envelope whose tag is not part of the protocol.
	ErrUnknownTag = errors.New("unknown envelope tag")
)

// Envelope is a parsed wire message. Raw keeps the exact bytes received so fan-out forwards the same shape.
type Envelope struct {
	Type            Tag
	TransactionUUID string
	Raw             json.RawMessage
}

type envelopeHeader struct {
	Type            string `json:"type"`
	TransactionUUID string `json:"transactionUuid"`
}

// ParseEnvelope reads the tag and optional correlation id of a wire message.
// An unknown tag still returns the envelope together with ErrUnknownTag so callers can log it.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var header envelopeHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	tag := NormalizeTag(header.Type)
	if tag == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	env := &Envelope{
		Type:            tag,
		TransactionUUID: strings.TrimSpace(header.TransactionUUID),
		Raw:             append(json.RawMessage(nil), data...),
	}
	if !tag.Known() {
		return env, fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}
	return env, nil
}

// Decode unmarshals the raw envelope into a typed payload.
func (e *Envelope) Decode(v any) error {
	if e == nil || len(e.Raw) == 0 {
		return ErrMalformedEnvelope
	}
	if err := json.Unmarshal(e.Raw, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrMalformedEnvelope, e.Type, err)
	}
	return nil
}

// Encode marshals a typed payload and parses it back into an envelope ready for delivery.
func Encode(payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return ParseEnvelope(data)
}

// CartUpdate is the cart_update wire message.
type CartUpdate struct {
	Type Tag `json:"type"`
	CartSnapshot
	RestoreDisplay bool `json:"restoreDisplay,omitempty"`
}

// NewCartUpdate wraps a snapshot for the wire.
func NewCartUpdate(snapshot CartSnapshot, restoreDisplay bool) CartUpdate {
	return CartUpdate{Type: TagCartUpdate, CartSnapshot: snapshot, RestoreDisplay: restoreDisplay}
}

// QRPayment is the qr_payment wire message.
type QRPayment struct {
	Type Tag `json:"type"`
	QRPaymentSnapshot
}

// NewQRPayment wraps a QR snapshot for the wire.
func NewQRPayment(snapshot QRPaymentSnapshot) QRPayment {
	return QRPayment{Type: TagQRPayment, QRPaymentSnapshot: snapshot}
}

// Signal carries the control tags: ping, pong, registration, cancel, success, popup close and restore.
type Signal struct {
	Type            Tag     `json:"type"`
	TransactionUUID string  `json:"transactionUuid,omitempty"`
	Amount          float64 `json:"amount,omitempty"`
	Timestamp       int64   `json:"timestamp,omitempty"`
}

// NewSignal builds a control message.
func NewSignal(tag Tag, transactionUUID string, timestamp int64) Signal {
	return Signal{Type: tag, TransactionUUID: strings.TrimSpace(transactionUUID), Timestamp: timestamp}
}
