package engine

import (
	"testing"
	"time"

	"promotion-engine/internal/domains/promotion/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var (
	testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	productX  = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	productY  = uuid.MustParse("00000000-0000-0000-0000-0000000000a2")
	productZ  = uuid.MustParse("00000000-0000-0000-0000-0000000000a3")
	category1 = uuid.MustParse("00000000-0000-0000-0000-0000000000c1")
	category2 = uuid.MustParse("00000000-0000-0000-0000-0000000000c2")
	customer1 = uuid.MustParse("00000000-0000-0000-0000-0000000000e1")
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(i int) *int { return &i }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func item(product, category uuid.UUID, price string, qty int) model.CartItem {
	return model.CartItem{ProductID: product, CategoryID: category, UnitPrice: dec(price), Quantity: qty}
}

func cartOf(items ...model.CartItem) model.CartSnapshot {
	return model.CartSnapshot{Items: items}
}

// newPromotion returns an active, valid 10% order discount.
func newPromotion(opts ...func(*model.Promotion)) *model.Promotion {
	p := &model.Promotion{
		ID:            uuid.New(),
		Name:          "test promotion",
		Type:          model.TypeAutomatic,
		DiscountType:  model.DiscountTypePercentage,
		DiscountValue: dec("10"),
		ApplyTo:       model.ApplyToOrder,
		StartDate:     testNow.Add(-24 * time.Hour),
		EndDate:       testNow.Add(24 * time.Hour),
		IsActive:      true,
		Version:       1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func withID(id string) func(*model.Promotion) {
	return func(p *model.Promotion) { p.ID = uuid.MustParse(id) }
}

func withPercentage(v string) func(*model.Promotion) {
	return func(p *model.Promotion) {
		p.DiscountType = model.DiscountTypePercentage
		p.DiscountValue = dec(v)
	}
}

func withFixedAmount(v string) func(*model.Promotion) {
	return func(p *model.Promotion) {
		p.DiscountType = model.DiscountTypeFixedAmount
		p.DiscountValue = dec(v)
	}
}

func withCoupon(code string) func(*model.Promotion) {
	return func(p *model.Promotion) {
		p.Type = model.TypeCoupon
		p.Code = code
	}
}

func withPriority(priority int) func(*model.Promotion) {
	return func(p *model.Promotion) { p.Priority = priority }
}

func withStacking(ids ...uuid.UUID) func(*model.Promotion) {
	return func(p *model.Promotion) {
		p.CanStack = true
		p.StacksWith = ids
	}
}

func withProducts(applyTo model.ApplyTo, ids ...uuid.UUID) func(*model.Promotion) {
	return func(p *model.Promotion) {
		p.ApplyTo = applyTo
		p.ProductIDs = ids
	}
}

func withCategories(applyTo model.ApplyTo, ids ...uuid.UUID) func(*model.Promotion) {
	return func(p *model.Promotion) {
		p.ApplyTo = applyTo
		p.CategoryIDs = ids
	}
}

func withBogo(buy, get int, pct string, sameProduct bool, rewards ...uuid.UUID) func(*model.Promotion) {
	return func(p *model.Promotion) {
		p.Type = model.TypeBOGO
		p.DiscountType = ""
		p.DiscountValue = decimal.Zero
		p.BogoConfig = &model.BogoConfig{
			BuyQuantity:           buy,
			GetQuantity:           get,
			GetDiscountPercentage: dec(pct),
			SameProduct:           sameProduct,
			GetProductIDs:         rewards,
		}
	}
}
