package domain

import "strings"

// Tag identifies the kind of an envelope.
type Tag string

const (
	TagPing                     Tag = "ping"
	TagPong                     Tag = "pong"
	TagCartUpdate               Tag = "cart_update"
	TagQRPayment                Tag = "qr_payment"
	TagQRPaymentCancelled       Tag = "qr_payment_cancelled"
	TagPaymentSuccess           Tag = "payment_success"
	TagCloseQRPopup             Tag = "close_qr_popup"
	TagRestoreCartDisplay       Tag = "restore_cart_display"
	TagCustomerDisplayConnected Tag = "customer_display_connected"
)

// RoleDisplay marks a connection that registered as a customer display.
const RoleDisplay = "display"

var knownTags = map[Tag]struct{}{
	TagPing:                     {},
	TagPong:                     {},
	TagCartUpdate:               {},
	TagQRPayment:                {},
	TagQRPaymentCancelled:       {},
	TagPaymentSuccess:           {},
	TagCloseQRPopup:             {},
	TagRestoreCartDisplay:       {},
	TagCustomerDisplayConnected: {},
}

// NormalizeTag trims and lower-cases a raw tag.
func NormalizeTag(raw string) Tag {
	return Tag(strings.ToLower(strings.TrimSpace(raw)))
}

// Known reports whether the tag is part of the protocol.
func (t Tag) Known() bool {
	_, ok := knownTags[t]
	return ok
}

// Scoped reports whether the tag is a control signal that may be narrowed by a transaction id.
func (t Tag) Scoped() bool {
	switch t {
	case TagQRPaymentCancelled, TagPaymentSuccess, TagCloseQRPopup:
		return true
	default:
		return false
	}
}

// ServerOriginated reports whether the tag may be injected by the server side (REST hook, broker, peers).
func (t Tag) ServerOriginated() bool {
	switch t {
	case TagQRPaymentCancelled, TagPaymentSuccess, TagCloseQRPopup, TagRestoreCartDisplay:
		return true
	default:
		return false
	}
}

func (t Tag) String() string { return string(t) }
