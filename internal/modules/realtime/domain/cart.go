package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrItemNotFound    = errors.New("cart item not found")
)

// Product is the catalog data the cart needs for a line.
type Product struct {
	ID    int64
	Name  string
	Price Money
}

type cartLine struct {
	product  Product
	quantity int
}

// Cart keeps line items in insertion order. Not safe for concurrent use.
type Cart struct {
	lines []cartLine
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{}
}

// Add puts qty units of product in the cart, merging with an existing line for the same product id.
func (c *Cart) Add(product Product, qty int) error {
	if product.ID <= 0 || strings.TrimSpace(product.Name) == "" || product.Price < 0 {
		return fmt.Errorf("%w: id=%d", ErrInvalidProduct, product.ID)
	}
	if qty <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	if idx := c.index(product.ID); idx >= 0 {
		c.lines[idx].quantity += qty
		c.lines[idx].product = product
		return nil
	}
	c.lines = append(c.lines, cartLine{product: product, quantity: qty})
	return nil
}

// SetQuantity replaces the quantity of a line. A quantity of zero or less removes it.
func (c *Cart) SetQuantity(productID int64, qty int) error {
	idx := c.index(productID)
	if idx < 0 {
		return fmt.Errorf("%w: id=%d", ErrItemNotFound, productID)
	}
	if qty <= 0 {
		c.removeAt(idx)
		return nil
	}
	c.lines[idx].quantity = qty
	return nil
}

// Remove drops the line for productID.
func (c *Cart) Remove(productID int64) error {
	idx := c.index(productID)
	if idx < 0 {
		return fmt.Errorf("%w: id=%d", ErrItemNotFound, productID)
	}
	c.removeAt(idx)
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Snapshot computes line totals, subtotal, tax (rate in basis points) and total.
func (c *Cart) Snapshot(taxBps int, now time.Time) CartSnapshot {
	items := make([]CartItem, 0, len(c.lines))
	var subtotal Money
	for _, line := range c.lines {
		lineTotal := line.product.Price.Times(line.quantity)
		subtotal += lineTotal
		items = append(items, CartItem{
			ID:       line.product.ID,
			Name:     line.product.Name,
			Price:    line.product.Price,
			Quantity: line.quantity,
			Total:    lineTotal,
		})
	}
	tax := subtotal.ApplyRate(taxBps)
	return CartSnapshot{
		Cart:      items,
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     subtotal + tax,
		Timestamp: now.UnixMilli(),
	}
}

func (c *Cart) index(productID int64) int {
	for i, line := range c.lines {
		if line.product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(idx int) {
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
}
