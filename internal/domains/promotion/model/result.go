package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InducedKind tells the order pipeline what an induced line means.
type InducedKind string

const (
	InducedBogoReward InducedKind = "BOGO_REWARD"
	InducedFreeGift   InducedKind = "FREE_GIFT"
)

// InducedItem is a line created or re-priced by a BOGO or FREE_GIFT promotion.
//
// BOGO reward lines point at units already in the cart and carry the discount
// per unit. FREE_GIFT lines are new zero-priced lines; the caller must check
// stock for them before committing the order.
type InducedItem struct {
	PromotionID  uuid.UUID       `json:"promotion_id"`
	Kind         InducedKind     `json:"kind"`
	ProductID    uuid.UUID       `json:"product_id"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitDiscount decimal.Decimal `json:"unit_discount"`
}

// AppliedPromotion is one selected promotion and what it took off.
type AppliedPromotion struct {
	PromotionID    uuid.UUID       `json:"promotion_id"`
	Code           string          `json:"code,omitempty"`
	Name           string          `json:"name"`
	Type           PromotionType   `json:"type"`
	ApplyTo        ApplyTo         `json:"apply_to"`
	ScopeAmount    decimal.Decimal `json:"scope_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// Rejection explains why a candidate promotion did not apply.
type Rejection struct {
	PromotionID uuid.UUID `json:"promotion_id"`
	Code        string    `json:"code,omitempty"`
	Reason      ErrorCode `json:"reason"`
	Message     string    `json:"message"`
}

// CouponOutcome is the answer to "did my code apply, and if not, why".
type CouponOutcome struct {
	Code    string    `json:"code"`
	Applied bool      `json:"applied"`
	Reason  ErrorCode `json:"reason,omitempty"`
	Message string    `json:"message,omitempty"`
}

// EvaluationResult is the output of one evaluation. It is deterministic for
// identical inputs.
type EvaluationResult struct {
	Applied       []AppliedPromotion `json:"applied"`
	InducedItems  []InducedItem      `json:"induced_items"`
	Rejections    []Rejection        `json:"rejections"`
	Coupon        *CouponOutcome     `json:"coupon,omitempty"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	TotalDiscount decimal.Decimal    `json:"total_discount"`
	FinalTotal    decimal.Decimal    `json:"final_total"`
}

// AppliedIDs lists the selected promotion ids in application order.
func (r *EvaluationResult) AppliedIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(r.Applied))
	for i, a := range r.Applied {
		ids[i] = a.PromotionID
	}
	return ids
}

// RejectionFor returns the rejection recorded for a promotion, if any.
func (r *EvaluationResult) RejectionFor(id uuid.UUID) (Rejection, bool) {
	for _, rej := range r.Rejections {
		if rej.PromotionID == id {
			return rej, true
		}
	}
	return Rejection{}, false
}
