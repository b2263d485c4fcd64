package model

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromotionType is the offer family of a promotion.
type PromotionType string

const (
	TypeCoupon           PromotionType = "COUPON"
	TypeAutomatic        PromotionType = "AUTOMATIC"
	TypeBOGO             PromotionType = "BOGO"
	TypeFreeGift         PromotionType = "FREE_GIFT"
	TypeCategoryDiscount PromotionType = "CATEGORY_DISCOUNT"
	TypeOrderDiscount    PromotionType = "ORDER_DISCOUNT"
	TypeProductDiscount  PromotionType = "PRODUCT_DISCOUNT"
)

// DiscountType decides how DiscountValue is interpreted.
type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "PERCENTAGE"
	DiscountTypeFixedAmount DiscountType = "FIXED_AMOUNT"
	DiscountTypeFixedPrice  DiscountType = "FIXED_PRICE"
)

// ApplyTo is the part of the cart the discount math runs over.
type ApplyTo string

const (
	ApplyToOrder    ApplyTo = "ORDER"
	ApplyToProduct  ApplyTo = "PRODUCT"
	ApplyToCategory ApplyTo = "CATEGORY"
)

// Status is derived from the validity window and the kill switch. It is never stored.
type Status string

const (
	StatusInactive  Status = "INACTIVE"
	StatusScheduled Status = "SCHEDULED"
	StatusActive    Status = "ACTIVE"
	StatusExpired   Status = "EXPIRED"
)

func (t PromotionType) IsValid() bool {
	switch t {
	case TypeCoupon, TypeAutomatic, TypeBOGO, TypeFreeGift,
		TypeCategoryDiscount, TypeOrderDiscount, TypeProductDiscount:
		return true
	}
	return false
}

func (d DiscountType) IsValid() bool {
	switch d {
	case DiscountTypePercentage, DiscountTypeFixedAmount, DiscountTypeFixedPrice:
		return true
	}
	return false
}

func (a ApplyTo) IsValid() bool {
	switch a {
	case ApplyToOrder, ApplyToProduct, ApplyToCategory:
		return true
	}
	return false
}

// IsNarrow reports whether the scope is a subset of the order.
func (a ApplyTo) IsNarrow() bool {
	return a == ApplyToProduct || a == ApplyToCategory
}

// BogoConfig describes a "buy N, get M" offer.
//
// When SameProduct is true the reward units are taken from the product that
// triggered the group. Otherwise the reward units are the cart units of
// GetProductIDs.
type BogoConfig struct {
	BuyQuantity           int             `json:"buy_quantity"`
	GetQuantity           int             `json:"get_quantity"`
	GetDiscountPercentage decimal.Decimal `json:"get_discount_percentage"`
	SameProduct           bool            `json:"same_product"`
	GetProductIDs         []uuid.UUID     `json:"get_product_ids,omitempty"`
}

// FreeGiftConfig adds a zero-priced line once the scope subtotal reaches Threshold.
type FreeGiftConfig struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Threshold decimal.Decimal `json:"threshold"`
}

// Promotion is an offer definition as stored in the promotions table.
type Promotion struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Code        string    `json:"code,omitempty" db:"code"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`

	Type          PromotionType    `json:"type" db:"type"`
	DiscountType  DiscountType     `json:"discount_type" db:"discount_type"`
	DiscountValue decimal.Decimal  `json:"discount_value" db:"discount_value"`
	MaxDiscount   *decimal.Decimal `json:"max_discount,omitempty" db:"max_discount"`
	ApplyTo       ApplyTo          `json:"apply_to" db:"apply_to"`

	// Targeting (empty = unrestricted for that dimension)
	ProductIDs  []uuid.UUID `json:"product_ids" db:"product_ids"`
	CategoryIDs []uuid.UUID `json:"category_ids" db:"category_ids"`
	CustomerIDs []uuid.UUID `json:"customer_ids" db:"customer_ids"`

	// Thresholds over the applicable scope
	MinPurchase *decimal.Decimal `json:"min_purchase,omitempty" db:"min_purchase"`
	MinQuantity *int             `json:"min_quantity,omitempty" db:"min_quantity"`
	MaxQuantity *int             `json:"max_quantity,omitempty" db:"max_quantity"`

	BogoConfig     *BogoConfig     `json:"bogo_config,omitempty" db:"bogo_config"`
	FreeGiftConfig *FreeGiftConfig `json:"free_gift_config,omitempty" db:"free_gift_config"`

	// Usage limits
	UsageLimit   *int `json:"usage_limit,omitempty" db:"usage_limit"`
	PerUserLimit *int `json:"per_user_limit,omitempty" db:"per_user_limit"`
	UsageCount   int  `json:"usage_count" db:"usage_count"`

	// Validity window [StartDate, EndDate)
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	IsActive  bool      `json:"is_active" db:"is_active"`

	// Combination control
	Priority   int         `json:"priority" db:"priority"`
	CanStack   bool        `json:"can_stack" db:"can_stack"`
	StacksWith []uuid.UUID `json:"stacks_with" db:"stacks_with"`

	// Metadata only, never read by the engine
	IsAIGenerated bool `json:"is_ai_generated" db:"is_ai_generated"`
	IsPublic      bool `json:"is_public" db:"is_public"`
	ShowOnWebsite bool `json:"show_on_website" db:"show_on_website"`

	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NormalizeCode trims and upper-cases the coupon code.
func (p *Promotion) NormalizeCode() {
	p.Code = NormalizeCode(p.Code)
}

// NormalizeCode is the canonical form used for storage and comparison.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RequiresCode reports whether the promotion only applies when its code is presented.
func (p *Promotion) RequiresCode() bool {
	return p.Type == TypeCoupon || p.Code != ""
}

// MatchesCode compares a presented code case-insensitively.
func (p *Promotion) MatchesCode(code string) bool {
	if p.Code == "" {
		return false
	}
	return strings.EqualFold(p.Code, strings.TrimSpace(code))
}

// StatusAt derives the lifecycle status at the given instant.
func (p *Promotion) StatusAt(now time.Time) Status {
	if !p.IsActive {
		return StatusInactive
	}
	if now.Before(p.StartDate) {
		return StatusScheduled
	}
	if !now.Before(p.EndDate) {
		return StatusExpired
	}
	return StatusActive
}

// IsUsageLimitReached checks the global cap against the last known counter.
func (p *Promotion) IsUsageLimitReached() bool {
	return p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit
}

// RemainingUses returns nil for unlimited promotions.
func (p *Promotion) RemainingUses() *int {
	if p.UsageLimit == nil {
		return nil
	}
	remaining := *p.UsageLimit - p.UsageCount
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// DeclaresStackingWith reports whether p is stackable and lists other in StacksWith.
func (p *Promotion) DeclaresStackingWith(other uuid.UUID) bool {
	if !p.CanStack {
		return false
	}
	for _, id := range p.StacksWith {
		if id == other {
			return true
		}
	}
	return false
}

// Validate checks the definition invariants. The engine runs it on every
// candidate, so a malformed row never reaches the discount math.
func (p Promotion) Validate() error {
	hundred := decimal.NewFromInt(100)

	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Type,
			validation.Required,
			validation.By(func(interface{}) error {
				if !p.Type.IsValid() {
					return errors.New("unknown promotion type")
				}
				return nil
			}),
		),
		validation.Field(&p.DiscountType,
			validation.When(p.Type != TypeBOGO && p.Type != TypeFreeGift,
				validation.Required,
				validation.By(func(interface{}) error {
					if !p.DiscountType.IsValid() {
						return errors.New("unknown discount type")
					}
					return nil
				}),
			),
		),
		validation.Field(&p.DiscountValue,
			validation.By(func(interface{}) error {
				if p.DiscountValue.IsNegative() {
					return errors.New("must not be negative")
				}
				if p.DiscountType == DiscountTypePercentage && p.Type != TypeBOGO && p.Type != TypeFreeGift {
					if !p.DiscountValue.IsPositive() || p.DiscountValue.GreaterThan(hundred) {
						return errors.New("percentage must be in (0, 100]")
					}
				}
				return nil
			}),
		),
		validation.Field(&p.MaxDiscount,
			validation.When(p.MaxDiscount != nil, validation.By(func(interface{}) error {
				if p.MaxDiscount.IsNegative() {
					return errors.New("must not be negative")
				}
				return nil
			})),
		),
		validation.Field(&p.ApplyTo,
			validation.Required,
			validation.By(func(interface{}) error {
				if !p.ApplyTo.IsValid() {
					return errors.New("unknown scope")
				}
				return nil
			}),
		),
		validation.Field(&p.Code,
			validation.When(p.Type == TypeCoupon, validation.Required),
			validation.By(func(interface{}) error {
				if p.Code != NormalizeCode(p.Code) {
					return errors.New("must be upper-case without surrounding spaces")
				}
				return nil
			}),
		),
		validation.Field(&p.EndDate,
			validation.Required,
			validation.By(func(interface{}) error {
				if !p.StartDate.Before(p.EndDate) {
					return errors.New("must be after start_date")
				}
				return nil
			}),
		),
		validation.Field(&p.MinQuantity, validation.When(p.MinQuantity != nil, validation.Min(0))),
		validation.Field(&p.MaxQuantity,
			validation.When(p.MaxQuantity != nil, validation.By(func(interface{}) error {
				if p.MinQuantity != nil && *p.MaxQuantity < *p.MinQuantity {
					return errors.New("must not be below min_quantity")
				}
				return nil
			})),
		),
		validation.Field(&p.BogoConfig,
			validation.When(p.Type == TypeBOGO, validation.Required, validation.By(validateBogo)),
		),
		validation.Field(&p.FreeGiftConfig,
			validation.When(p.Type == TypeFreeGift, validation.Required, validation.By(validateFreeGift)),
		),
		validation.Field(&p.UsageLimit,
			validation.When(p.UsageLimit != nil, validation.By(func(interface{}) error {
				if *p.UsageLimit < 0 {
					return errors.New("must not be negative")
				}
				if p.UsageCount > *p.UsageLimit {
					return errors.New("usage_count exceeds usage_limit")
				}
				return nil
			})),
		),
		validation.Field(&p.PerUserLimit, validation.When(p.PerUserLimit != nil, validation.Min(0))),
	)
}

func validateBogo(value interface{}) error {
	cfg, _ := value.(*BogoConfig)
	if cfg == nil {
		return nil
	}
	if cfg.BuyQuantity < 1 || cfg.GetQuantity < 1 {
		return errors.New("buy_quantity and get_quantity must be >= 1")
	}
	if !cfg.GetDiscountPercentage.IsPositive() || cfg.GetDiscountPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("get_discount_percentage must be in (0, 100]")
	}
	if !cfg.SameProduct && len(cfg.GetProductIDs) == 0 {
		return errors.New("get_product_ids required when same_product is false")
	}
	return nil
}

func validateFreeGift(value interface{}) error {
	cfg, _ := value.(*FreeGiftConfig)
	if cfg == nil {
		return nil
	}
	if cfg.ProductID == uuid.Nil {
		return errors.New("product_id is required")
	}
	if cfg.Quantity < 0 {
		return errors.New("quantity must not be negative")
	}
	if cfg.Threshold.IsNegative() {
		return errors.New("threshold must not be negative")
	}
	return nil
}
