package domain

// CartItem is one line of a cart snapshot as consumed by the display.
type CartItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    Money  `json:"price"`
	Quantity int    `json:"quantity"`
	Total    Money  `json:"total"`
}

// CartSnapshot is a complete cart state sent wholesale on every mutation.
type CartSnapshot struct {
	Cart      []CartItem `json:"cart"`
	Subtotal  Money      `json:"subtotal"`
	Tax       Money      `json:"tax"`
	Total     Money      `json:"total"`
	Timestamp int64      `json:"timestamp"`
}

// Empty reports whether the snapshot carries no line items.
func (s CartSnapshot) Empty() bool {
	return len(s.Cart) == 0
}

// Clone returns a snapshot that shares no slice memory with s.
func (s CartSnapshot) Clone() CartSnapshot {
	cloned := s
	if s.Cart != nil {
		cloned.Cart = append([]CartItem(nil), s.Cart...)
	}
	return cloned
}

// QRPaymentSnapshot is an outstanding QR payment request.
type QRPaymentSnapshot struct {
	QRCodeURL       string  `json:"qrCodeUrl"`
	Amount          float64 `json:"amount"`
	PaymentMethod   string  `json:"paymentMethod"`
	TransactionUUID string  `json:"transactionUuid"`
	Timestamp       int64   `json:"timestamp"`
}
