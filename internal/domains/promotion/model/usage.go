package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromotionUsage is one successful redemption. Rows are immutable once written.
type PromotionUsage struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	PromotionID    uuid.UUID       `db:"promotion_id" json:"promotion_id"`
	UserID         *uuid.UUID      `db:"user_id" json:"user_id,omitempty"`
	OrderID        uuid.UUID       `db:"order_id" json:"order_id"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	SubtotalBefore decimal.Decimal `db:"subtotal_before" json:"subtotal_before"`
	TotalAfter     decimal.Decimal `db:"total_after" json:"total_after"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// RedemptionRequest carries the exact amounts the order was charged with.
type RedemptionRequest struct {
	PromotionID    uuid.UUID       `json:"promotion_id"`
	CustomerID     *uuid.UUID      `json:"customer_id,omitempty"`
	OrderID        uuid.UUID       `json:"order_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Total          decimal.Decimal `json:"total"`
}

// Validate checks the request before any transaction is opened.
func (r RedemptionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PromotionID, requiredUUID),
		validation.Field(&r.OrderID, requiredUUID),
		validation.Field(&r.DiscountAmount, validation.By(nonNegative)),
		validation.Field(&r.Subtotal, validation.By(nonNegative)),
		validation.Field(&r.Total, validation.By(nonNegative)),
	)
}

// ToUsage builds the row to insert for a winning redemption.
func (r RedemptionRequest) ToUsage(now time.Time) *PromotionUsage {
	return &PromotionUsage{
		ID:             uuid.New(),
		PromotionID:    r.PromotionID,
		UserID:         r.CustomerID,
		OrderID:        r.OrderID,
		DiscountAmount: r.DiscountAmount,
		SubtotalBefore: r.Subtotal,
		TotalAfter:     r.Total,
		CreatedAt:      now,
	}
}

// RedemptionRejection is the audit entry for a redemption that lost at commit
// time. The order is kept; the pipeline drops the discount retroactively.
type RedemptionRejection struct {
	ID             uuid.UUID       `json:"id"`
	PromotionID    uuid.UUID       `json:"promotion_id"`
	CustomerID     *uuid.UUID      `json:"customer_id,omitempty"`
	OrderID        uuid.UUID       `json:"order_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Reason         ErrorCode       `json:"reason"`
	Message        string          `json:"message"`
	RejectedAt     time.Time       `json:"rejected_at"`
}

// requiredUUID rejects uuid.Nil. validation.Required cannot, because
// uuid.UUID is a fixed-size array and a driver.Valuer.
var requiredUUID = validation.By(func(value interface{}) error {
	if id, ok := value.(uuid.UUID); ok && id == uuid.Nil {
		return validation.ErrRequired
	}
	return nil
})

func nonNegative(value interface{}) error {
	d, ok := value.(decimal.Decimal)
	if ok && d.IsNegative() {
		return validation.NewError("validation_non_negative", "must not be negative")
	}
	return nil
}
