package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EvaluateRequest is the storefront request to price a cart.
type EvaluateRequest struct {
	Items      []CartItem `json:"items"`
	Code       string     `json:"code"`
	CustomerID *uuid.UUID `json:"-"` // from the JWT, never from the body
}

// Validate validates EvaluateRequest
func (r EvaluateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items,
			validation.Required.Error("cart must not be empty"),
			validation.Length(1, 200).Error("cart must hold between 1 and 200 lines"),
		),
		validation.Field(&r.Code, validation.Length(0, 50)),
	)
}

// Cart returns the snapshot handed to the engine.
func (r EvaluateRequest) Cart() CartSnapshot {
	return CartSnapshot{Items: r.Items}
}

// Validate validates CartItem
func (i CartItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ProductID, requiredUUID),
		validation.Field(&i.UnitPrice, validation.By(nonNegative)),
		validation.Field(&i.Quantity, validation.Required, validation.Min(1)),
	)
}

// RedeemRequest is sent by the order pipeline when an order is committed.
type RedeemRequest struct {
	PromotionID    uuid.UUID       `json:"promotion_id"`
	CustomerID     *uuid.UUID      `json:"customer_id,omitempty"`
	OrderID        uuid.UUID       `json:"order_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Total          decimal.Decimal `json:"total"`
}

// Validate validates RedeemRequest
func (r RedeemRequest) Validate() error {
	return r.ToRedemption().Validate()
}

// ToRedemption maps the request to the ledger input.
func (r RedeemRequest) ToRedemption() RedemptionRequest {
	return RedemptionRequest{
		PromotionID:    r.PromotionID,
		CustomerID:     r.CustomerID,
		OrderID:        r.OrderID,
		DiscountAmount: r.DiscountAmount,
		Subtotal:       r.Subtotal,
		Total:          r.Total,
	}
}

// RedeemResponse is either the usage record or a warning that the discount
// must be dropped from the order.
type RedeemResponse struct {
	Redeemed bool            `json:"redeemed"`
	Usage    *PromotionUsage `json:"usage,omitempty"`
	Warning  *AppError       `json:"warning,omitempty"`
}

// -------------------------------------------------------------------
// ADMIN COMMANDS
// -------------------------------------------------------------------

// UpdatePromotionCommand is a partial update. Nil fields are left untouched.
// Slice fields replace the stored list when present.
type UpdatePromotionCommand struct {
	Version int `json:"version"`

	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	DiscountType  *DiscountType    `json:"discount_type"`
	DiscountValue *decimal.Decimal `json:"discount_value"`
	MaxDiscount   *decimal.Decimal `json:"max_discount"`
	ApplyTo       *ApplyTo         `json:"apply_to"`

	ProductIDs  *[]uuid.UUID `json:"product_ids"`
	CategoryIDs *[]uuid.UUID `json:"category_ids"`
	CustomerIDs *[]uuid.UUID `json:"customer_ids"`

	MinPurchase *decimal.Decimal `json:"min_purchase"`
	MinQuantity *int             `json:"min_quantity"`
	MaxQuantity *int             `json:"max_quantity"`

	BogoConfig     *BogoConfig     `json:"bogo_config"`
	FreeGiftConfig *FreeGiftConfig `json:"free_gift_config"`

	UsageLimit   *int `json:"usage_limit"`
	PerUserLimit *int `json:"per_user_limit"`

	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	IsActive  *bool      `json:"is_active"`

	Priority   *int         `json:"priority"`
	CanStack   *bool        `json:"can_stack"`
	StacksWith *[]uuid.UUID `json:"stacks_with"`

	IsPublic      *bool `json:"is_public"`
	ShowOnWebsite *bool `json:"show_on_website"`
}

var errEmptyCommand = errors.New("at least one field must be set")

// Validate checks the command in isolation. Cross-field invariants are checked
// on the merged promotion by Apply.
func (c UpdatePromotionCommand) Validate() error {
	if c.isEmpty() {
		return errEmptyCommand
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.Version, validation.Required, validation.Min(1)),
		validation.Field(&c.Name, validation.When(c.Name != nil, validation.Required, validation.Length(1, 200))),
		validation.Field(&c.Description, validation.When(c.Description != nil, validation.Length(0, 1000))),
		validation.Field(&c.DiscountType, validation.When(c.DiscountType != nil, validation.By(func(interface{}) error {
			if !c.DiscountType.IsValid() {
				return errors.New("unknown discount type")
			}
			return nil
		}))),
		validation.Field(&c.ApplyTo, validation.When(c.ApplyTo != nil, validation.By(func(interface{}) error {
			if !c.ApplyTo.IsValid() {
				return errors.New("unknown scope")
			}
			return nil
		}))),
		validation.Field(&c.MinQuantity, validation.When(c.MinQuantity != nil, validation.Min(0))),
		validation.Field(&c.MaxQuantity, validation.When(c.MaxQuantity != nil, validation.Min(0))),
		validation.Field(&c.UsageLimit, validation.When(c.UsageLimit != nil, validation.Min(0))),
		validation.Field(&c.PerUserLimit, validation.When(c.PerUserLimit != nil, validation.Min(0))),
	)
}

func (c UpdatePromotionCommand) isEmpty() bool {
	return c.Name == nil && c.Description == nil && c.DiscountType == nil &&
		c.DiscountValue == nil && c.MaxDiscount == nil && c.ApplyTo == nil &&
		c.ProductIDs == nil && c.CategoryIDs == nil && c.CustomerIDs == nil &&
		c.MinPurchase == nil && c.MinQuantity == nil && c.MaxQuantity == nil &&
		c.BogoConfig == nil && c.FreeGiftConfig == nil &&
		c.UsageLimit == nil && c.PerUserLimit == nil &&
		c.StartDate == nil && c.EndDate == nil && c.IsActive == nil &&
		c.Priority == nil && c.CanStack == nil && c.StacksWith == nil &&
		c.IsPublic == nil && c.ShowOnWebsite == nil
}

// Apply merges the command into a copy of p and validates the result.
// p itself is never modified.
func (c UpdatePromotionCommand) Apply(p *Promotion) (*Promotion, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	merged := *p
	if c.Name != nil {
		merged.Name = *c.Name
	}
	if c.Description != nil {
		merged.Description = c.Description
	}
	if c.DiscountType != nil {
		merged.DiscountType = *c.DiscountType
	}
	if c.DiscountValue != nil {
		merged.DiscountValue = *c.DiscountValue
	}
	if c.MaxDiscount != nil {
		merged.MaxDiscount = c.MaxDiscount
	}
	if c.ApplyTo != nil {
		merged.ApplyTo = *c.ApplyTo
	}
	if c.ProductIDs != nil {
		merged.ProductIDs = *c.ProductIDs
	}
	if c.CategoryIDs != nil {
		merged.CategoryIDs = *c.CategoryIDs
	}
	if c.CustomerIDs != nil {
		merged.CustomerIDs = *c.CustomerIDs
	}
	if c.MinPurchase != nil {
		merged.MinPurchase = c.MinPurchase
	}
	if c.MinQuantity != nil {
		merged.MinQuantity = c.MinQuantity
	}
	if c.MaxQuantity != nil {
		merged.MaxQuantity = c.MaxQuantity
	}
	if c.BogoConfig != nil {
		merged.BogoConfig = c.BogoConfig
	}
	if c.FreeGiftConfig != nil {
		merged.FreeGiftConfig = c.FreeGiftConfig
	}
	if c.UsageLimit != nil {
		merged.UsageLimit = c.UsageLimit
	}
	if c.PerUserLimit != nil {
		merged.PerUserLimit = c.PerUserLimit
	}
	if c.StartDate != nil {
		merged.StartDate = *c.StartDate
	}
	if c.EndDate != nil {
		merged.EndDate = *c.EndDate
	}
	if c.IsActive != nil {
		merged.IsActive = *c.IsActive
	}
	if c.Priority != nil {
		merged.Priority = *c.Priority
	}
	if c.CanStack != nil {
		merged.CanStack = *c.CanStack
	}
	if c.StacksWith != nil {
		merged.StacksWith = *c.StacksWith
	}
	if c.IsPublic != nil {
		merged.IsPublic = *c.IsPublic
	}
	if c.ShowOnWebsite != nil {
		merged.ShowOnWebsite = *c.ShowOnWebsite
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// -------------------------------------------------------------------
// RESPONSES
// -------------------------------------------------------------------

// PromotionDetailResponse - promotion plus derived fields (Admin)
type PromotionDetailResponse struct {
	*Promotion
	Status        Status   `json:"status"`
	RemainingUses *int     `json:"remaining_uses,omitempty"`
	UsageRate     *float64 `json:"usage_rate,omitempty"`
}

// NewPromotionDetailResponse derives status and usage figures at now.
func NewPromotionDetailResponse(p *Promotion, now time.Time) *PromotionDetailResponse {
	resp := &PromotionDetailResponse{
		Promotion:     p,
		Status:        p.StatusAt(now),
		RemainingUses: p.RemainingUses(),
	}
	if p.UsageLimit != nil && *p.UsageLimit > 0 {
		rate := float64(p.UsageCount) / float64(*p.UsageLimit) * 100
		resp.UsageRate = &rate
	}
	return resp
}
