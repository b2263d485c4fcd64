package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one line of the read-only cart snapshot handed to the engine.
type CartItem struct {
	ProductID  uuid.UUID       `json:"product_id"`
	CategoryID uuid.UUID       `json:"category_id"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
}

// LineTotal returns unit price × quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartSnapshot is the ordered cart at evaluation time.
type CartSnapshot struct {
	Items []CartItem `json:"items"`
}

// Subtotal = Σ unitPrice·quantity
func (c CartSnapshot) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Units returns the total unit count of the cart.
func (c CartSnapshot) Units() int {
	units := 0
	for _, item := range c.Items {
		units += item.Quantity
	}
	return units
}

// CustomerRef identifies the buyer. A nil *CustomerRef is a guest.
//
// Redemptions holds the customer's prior redemption count per promotion, as
// loaded by the caller from the usage ledger.
type CustomerRef struct {
	ID          uuid.UUID         `json:"id"`
	Redemptions map[uuid.UUID]int `json:"-"`
}

// RedemptionsOf returns the prior redemption count for one promotion.
func (c *CustomerRef) RedemptionsOf(promotionID uuid.UUID) int {
	if c == nil || c.Redemptions == nil {
		return 0
	}
	return c.Redemptions[promotionID]
}

// Scope is the portion of the cart a promotion's discount is computed over.
type Scope struct {
	Items    []CartItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Quantity int             `json:"quantity"`
}

// NewScope builds a scope from the given lines.
func NewScope(items []CartItem) Scope {
	s := Scope{Items: items, Subtotal: decimal.Zero}
	for _, item := range items {
		s.Subtotal = s.Subtotal.Add(item.LineTotal())
		s.Quantity += item.Quantity
	}
	return s
}

// IsEmpty reports whether no cart line falls in the scope.
func (s Scope) IsEmpty() bool {
	return len(s.Items) == 0
}
