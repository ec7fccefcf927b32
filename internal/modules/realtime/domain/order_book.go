package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderExists   = errors.New("order already open")
	ErrNoActiveOrder = errors.New("no active order")
)

// OrderBook tracks the in-progress orders of one cashier. Exactly one order, if any, is active.
type OrderBook struct {
	orders map[string]*Cart
	order  []string
	active string
}

func NewOrderBook() *OrderBook {
	return &OrderBook{orders: make(map[string]*Cart)}
}

// Open creates an empty order. The first opened order becomes active.
func (b *OrderBook) Open(orderID string) error {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrOrderNotFound)
	}
	if _, ok := b.orders[id]; ok {
		return fmt.Errorf("%w: %s", ErrOrderExists, id)
	}
	b.orders[id] = NewCart()
	b.order = append(b.order, id)
	if b.active == "" {
		b.active = id
	}
	return nil
}

// Activate switches the mirrored order.
func (b *OrderBook) Activate(orderID string) error {
	id := strings.TrimSpace(orderID)
	if _, ok := b.orders[id]; !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	b.active = id
	return nil
}

// Close discards an order. Closing the active order activates the oldest remaining one.
func (b *OrderBook) Close(orderID string) error {
	id := strings.TrimSpace(orderID)
	if _, ok := b.orders[id]; !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	delete(b.orders, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	if b.active == id {
		b.active = ""
		if len(b.order) > 0 {
			b.active = b.order[0]
		}
	}
	return nil
}

// Active returns the active order id and its cart.
func (b *OrderBook) Active() (string, *Cart, error) {
	if b.active == "" {
		return "", nil, ErrNoActiveOrder
	}
	return b.active, b.orders[b.active], nil
}

// Cart returns the cart of any open order.
func (b *OrderBook) Cart(orderID string) (*Cart, error) {
	cart, ok := b.orders[strings.TrimSpace(orderID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return cart, nil
}

// IsActive reports whether orderID is the mirrored order.
func (b *OrderBook) IsActive(orderID string) bool {
	return b.active != "" && b.active == strings.TrimSpace(orderID)
}

// IDs lists open orders in opening order.
func (b *OrderBook) IDs() []string {
	return append([]string(nil), b.order...)
}
