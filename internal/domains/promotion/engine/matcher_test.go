package engine

import (
	"testing"
	"time"

	"promotion-engine/internal/domains/promotion/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Check(t *testing.T) {
	m := NewMatcher()
	cart := cartOf(
		item(productX, category1, "10", 3),
		item(productY, category2, "25", 2),
	)
	member := &model.CustomerRef{ID: customer1}

	tests := []struct {
		name     string
		promo    *model.Promotion
		customer *model.CustomerRef
		code     string
		reason   model.ErrorCode
	}{
		{
			name:  "active order discount",
			promo: newPromotion(),
		},
		{
			name:   "malformed definition",
			promo:  newPromotion(withPercentage("120")),
			reason: model.ErrCodeInvalidDefinition,
		},
		{
			name: "bogo without config",
			promo: newPromotion(func(p *model.Promotion) {
				p.Type = model.TypeBOGO
			}),
			reason: model.ErrCodeInvalidDefinition,
		},
		{
			name:   "coupon without code",
			promo:  newPromotion(withCoupon("SAVE10")),
			reason: model.ErrCodeCodeNotFound,
		},
		{
			name:  "coupon code matches case-insensitively",
			promo: newPromotion(withCoupon("SAVE10")),
			code:  " save10 ",
		},
		{
			name:   "wrong code",
			promo:  newPromotion(withCoupon("SAVE10")),
			code:   "SAVE20",
			reason: model.ErrCodeCodeNotFound,
		},
		{
			name: "kill switch",
			promo: newPromotion(func(p *model.Promotion) {
				p.IsActive = false
			}),
			reason: model.ErrCodeCodeInactive,
		},
		{
			name: "not started",
			promo: newPromotion(func(p *model.Promotion) {
				p.StartDate = testNow.Add(time.Hour)
				p.EndDate = testNow.Add(48 * time.Hour)
			}),
			reason: model.ErrCodeCodeNotYetActive,
		},
		{
			name: "starts exactly now",
			promo: newPromotion(func(p *model.Promotion) {
				p.StartDate = testNow
			}),
		},
		{
			name: "end date is exclusive",
			promo: newPromotion(func(p *model.Promotion) {
				p.EndDate = testNow
			}),
			reason: model.ErrCodeCodeExpired,
		},
		{
			name: "customer targeting guest",
			promo: newPromotion(func(p *model.Promotion) {
				p.CustomerIDs = []uuid.UUID{customer1}
			}),
			reason: model.ErrCodeNotApplicable,
		},
		{
			name: "customer targeting member",
			promo: newPromotion(func(p *model.Promotion) {
				p.CustomerIDs = []uuid.UUID{customer1}
			}),
			customer: member,
		},
		{
			name:   "product not in cart",
			promo:  newPromotion(withProducts(model.ApplyToProduct, productZ)),
			reason: model.ErrCodeNotApplicable,
		},
		{
			name:  "category in cart",
			promo: newPromotion(withCategories(model.ApplyToCategory, category2)),
		},
		{
			name:   "order scope with missing qualifier",
			promo:  newPromotion(withProducts(model.ApplyToOrder, productZ)),
			reason: model.ErrCodeNotApplicable,
		},
		{
			name: "min purchase over category scope",
			promo: newPromotion(withCategories(model.ApplyToCategory, category1), func(p *model.Promotion) {
				p.MinPurchase = decPtr("40") // category1 subtotal is 30
			}),
			reason: model.ErrCodeThresholdNotMet,
		},
		{
			name: "min purchase over order scope",
			promo: newPromotion(func(p *model.Promotion) {
				p.MinPurchase = decPtr("80")
			}),
		},
		{
			name: "max quantity",
			promo: newPromotion(func(p *model.Promotion) {
				p.MaxQuantity = intPtr(4)
			}),
			reason: model.ErrCodeThresholdNotMet,
		},
		{
			name: "min quantity over product scope",
			promo: newPromotion(withProducts(model.ApplyToProduct, productY), func(p *model.Promotion) {
				p.MinQuantity = intPtr(3)
			}),
			reason: model.ErrCodeThresholdNotMet,
		},
		{
			name: "global usage limit reached",
			promo: newPromotion(func(p *model.Promotion) {
				p.UsageLimit = intPtr(5)
				p.UsageCount = 5
			}),
			reason: model.ErrCodeUsageLimitExceeded,
		},
		{
			name: "per user limit reached",
			promo: newPromotion(withID("00000000-0000-0000-0000-000000000001"), func(p *model.Promotion) {
				p.PerUserLimit = intPtr(1)
			}),
			customer: &model.CustomerRef{
				ID:          customer1,
				Redemptions: map[uuid.UUID]int{uuid.MustParse("00000000-0000-0000-0000-000000000001"): 1},
			},
			reason: model.ErrCodeUsageLimitExceeded,
		},
		{
			name: "per user limit needs a customer",
			promo: newPromotion(func(p *model.Promotion) {
				p.PerUserLimit = intPtr(1)
			}),
			reason: model.ErrCodeNotApplicable,
		},
		{
			name: "free gift below threshold",
			promo: newPromotion(func(p *model.Promotion) {
				p.Type = model.TypeFreeGift
				p.FreeGiftConfig = &model.FreeGiftConfig{ProductID: productZ, Threshold: dec("100")}
			}),
			reason: model.ErrCodeThresholdNotMet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := m.Check(tt.promo, cart, tt.customer, tt.code, testNow)

			if tt.reason == "" {
				assert.True(t, v.Eligible, "unexpected rejection %s: %s", v.Reason, v.Message)
				assert.True(t, m.IsEligible(tt.promo, cart, tt.customer, tt.code, testNow))
				return
			}
			assert.False(t, v.Eligible)
			assert.Equal(t, tt.reason, v.Reason)
			assert.NotEmpty(t, v.Message)
		})
	}
}

func TestMatcher_ScopeOf(t *testing.T) {
	m := NewMatcher()
	cart := cartOf(
		item(productX, category1, "10", 3),
		item(productY, category2, "25", 2),
		item(productZ, category1, "5", 1),
	)

	t.Run("order scope is the whole cart", func(t *testing.T) {
		scope, ok := m.ScopeOf(newPromotion(withProducts(model.ApplyToOrder, productY)), cart)

		require.True(t, ok)
		assertDecimal(t, "85", scope.Subtotal)
		assert.Equal(t, 6, scope.Quantity)
	})

	t.Run("category scope is the matching subset", func(t *testing.T) {
		scope, ok := m.ScopeOf(newPromotion(withCategories(model.ApplyToCategory, category1)), cart)

		require.True(t, ok)
		assertDecimal(t, "35", scope.Subtotal)
		assert.Equal(t, 4, scope.Quantity)
		assert.Len(t, scope.Items, 2)
	})

	t.Run("empty product list means any product", func(t *testing.T) {
		scope, ok := m.ScopeOf(newPromotion(withProducts(model.ApplyToProduct)), cart)

		require.True(t, ok)
		assert.Len(t, scope.Items, 3)
	})

	t.Run("bogo scope carries reward lines", func(t *testing.T) {
		promo := newPromotion(withProducts(model.ApplyToProduct, productX), withBogo(1, 1, "100", false, productZ))
		scope, ok := m.ScopeOf(promo, cart)

		require.True(t, ok)
		assert.Len(t, scope.Items, 2)
		assertDecimal(t, "35", scope.Subtotal)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := m.ScopeOf(newPromotion(withCategories(model.ApplyToCategory, uuid.New())), cart)

		assert.False(t, ok)
	})
}
