package engine

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"promotion-engine/internal/domains/promotion/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return New(Options{Scale: 2})
}

func TestEvaluate_PercentageCapped(t *testing.T) {
	e := newTestEngine()
	promo := newPromotion(withPercentage("20"), func(p *model.Promotion) {
		p.MaxDiscount = decPtr("15")
	})

	result := e.Evaluate(Input{
		Cart:       cartOf(item(productX, category1, "60", 2)),
		Now:        testNow,
		Candidates: []*model.Promotion{promo},
	})

	require.Len(t, result.Applied, 1)
	assertDecimal(t, "120", result.Subtotal)
	assertDecimal(t, "15", result.TotalDiscount)
	assertDecimal(t, "105", result.FinalTotal)
	assert.Nil(t, result.Coupon)
}

func TestEvaluate_BOGOThreeUnits(t *testing.T) {
	e := newTestEngine()
	promo := newPromotion(withProducts(model.ApplyToProduct, productX), withBogo(2, 1, "100", true))

	result := e.Evaluate(Input{
		Cart:       cartOf(item(productX, category1, "10", 3)),
		Now:        testNow,
		Candidates: []*model.Promotion{promo},
	})

	require.Len(t, result.Applied, 1)
	assertDecimal(t, "10", result.TotalDiscount)
	assertDecimal(t, "20", result.FinalTotal)
	require.Len(t, result.InducedItems, 1)
	assert.Equal(t, 1, result.InducedItems[0].Quantity)
}

func TestEvaluate_BOGOWithoutCompleteGroup(t *testing.T) {
	e := newTestEngine()
	promo := newPromotion(withProducts(model.ApplyToProduct, productX), withBogo(2, 1, "100", true))

	result := e.Evaluate(Input{
		Cart:       cartOf(item(productX, category1, "10", 2)),
		Now:        testNow,
		Candidates: []*model.Promotion{promo},
	})

	assert.Empty(t, result.Applied)
	rej, ok := result.RejectionFor(promo.ID)
	require.True(t, ok)
	assert.Equal(t, model.ErrCodeThresholdNotMet, rej.Reason)
	assertDecimal(t, "20", result.FinalTotal)
}

func TestEvaluate_ExpiredCoupon(t *testing.T) {
	e := newTestEngine()
	promo := newPromotion(withCoupon("SAVE10"), withPercentage("10"), func(p *model.Promotion) {
		p.StartDate = testNow.Add(-30 * 24 * time.Hour)
		p.EndDate = testNow.Add(-24 * time.Hour)
	})

	result := e.Evaluate(Input{
		Cart:       cartOf(item(productX, category1, "50", 1)),
		Code:       "save10",
		Now:        testNow,
		Candidates: []*model.Promotion{promo},
	})

	assert.Empty(t, result.Applied)
	assertDecimal(t, "0", result.TotalDiscount)
	assertDecimal(t, "50", result.FinalTotal)
	require.NotNil(t, result.Coupon)
	assert.Equal(t, "SAVE10", result.Coupon.Code)
	assert.False(t, result.Coupon.Applied)
	assert.Equal(t, model.ErrCodeCodeExpired, result.Coupon.Reason)
}

func TestEvaluate_UnknownCoupon(t *testing.T) {
	e := newTestEngine()
	other := newPromotion(withCoupon("WELCOME"))

	result := e.Evaluate(Input{
		Cart:       cartOf(item(productX, category1, "50", 1)),
		Code:       "NOPE",
		Now:        testNow,
		Candidates: []*model.Promotion{other},
	})

	require.NotNil(t, result.Coupon)
	assert.Equal(t, model.ErrCodeCodeNotFound, result.Coupon.Reason)
	// A coupon that was not presented is not a rejection.
	assert.Empty(t, result.Rejections)
}

func TestEvaluate_CouponApplied(t *testing.T) {
	e := newTestEngine()
	coupon := newPromotion(withCoupon("SAVE10"), withFixedAmount("10"))

	result := e.Evaluate(Input{
		Cart:       cartOf(item(productX, category1, "50", 1)),
		Code:       "Save10",
		Now:        testNow,
		Candidates: []*model.Promotion{coupon},
	})

	require.NotNil(t, result.Coupon)
	assert.True(t, result.Coupon.Applied)
	assertDecimal(t, "40", result.FinalTotal)
}

func TestEvaluate_CouponLosesToHigherPriority(t *testing.T) {
	e := newTestEngine()
	auto := newPromotion(withPriority(10), withPercentage("20"))
	coupon := newPromotion(withPriority(1), withCoupon("SAVE10"), withFixedAmount("10"))

	result := e.Evaluate(Input{
		Cart:       cartOf(item(productX, category1, "50", 1)),
		Code:       "SAVE10",
		Now:        testNow,
		Candidates: []*model.Promotion{coupon, auto},
	})

	require.NotNil(t, result.Coupon)
	assert.False(t, result.Coupon.Applied)
	assert.Equal(t, model.ErrCodeNotCombinable, result.Coupon.Reason)
	assertDecimal(t, "10", result.TotalDiscount)
}

func TestEvaluate_PriorityTenBeatsFive(t *testing.T) {
	e := newTestEngine()
	ten := newPromotion(withPriority(10), withPercentage("5"))
	five := newPromotion(withPriority(5), withPercentage("25"))

	result := e.Evaluate(Input{
		Cart:       cartOf(item(productX, category1, "100", 1)),
		Now:        testNow,
		Candidates: []*model.Promotion{five, ten},
	})

	assert.Equal(t, []uuid.UUID{ten.ID}, result.AppliedIDs())
	rej, ok := result.RejectionFor(five.ID)
	require.True(t, ok)
	assert.Equal(t, model.ErrCodeNotCombinable, rej.Reason)
}

func TestEvaluate_FreeGift(t *testing.T) {
	e := newTestEngine()
	gift := newPromotion(func(p *model.Promotion) {
		p.Type = model.TypeFreeGift
		p.DiscountType = ""
		p.DiscountValue = decimal.Zero
		p.FreeGiftConfig = &model.FreeGiftConfig{ProductID: productZ, Quantity: 2, Threshold: dec("40")}
	})

	result := e.Evaluate(Input{
		Cart:       cartOf(item(productX, category1, "50", 1)),
		Now:        testNow,
		Candidates: []*model.Promotion{gift},
	})

	require.Len(t, result.Applied, 1)
	assertDecimal(t, "0", result.TotalDiscount)
	require.Len(t, result.InducedItems, 1)
	assert.Equal(t, model.InducedFreeGift, result.InducedItems[0].Kind)
	assert.Equal(t, 2, result.InducedItems[0].Quantity)
}

func TestEvaluate_DuplicateCandidates(t *testing.T) {
	e := newTestEngine()
	promo := newPromotion(withFixedAmount("5"))

	result := e.Evaluate(Input{
		Cart:       cartOf(item(productX, category1, "50", 1)),
		Now:        testNow,
		Candidates: []*model.Promotion{promo, nil, promo},
	})

	require.Len(t, result.Applied, 1)
	assert.Empty(t, result.Rejections)
}

func TestEvaluate_Idempotent(t *testing.T) {
	e := newTestEngine()
	a := newPromotion(withID("00000000-0000-0000-0000-0000000000aa"), withPriority(3), withCategories(model.ApplyToCategory, category1))
	b := newPromotion(withID("00000000-0000-0000-0000-0000000000bb"), withPriority(3), withFixedAmount("7"))
	c := newPromotion(withCoupon("SAVE10"), func(p *model.Promotion) { p.IsActive = false })

	in := Input{
		Cart: cartOf(
			item(productX, category1, "19.99", 2),
			item(productY, category2, "5.25", 3),
		),
		Code:       "SAVE10",
		Now:        testNow,
		Candidates: []*model.Promotion{c, b, a},
	}

	first, err := json.Marshal(e.Evaluate(in))
	require.NoError(t, err)

	in.Candidates = []*model.Promotion{a, c, b}
	second, err := json.Marshal(e.Evaluate(in))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestEvaluate_FinalTotalNeverNegative(t *testing.T) {
	e := newTestEngine()
	rng := rand.New(rand.NewSource(42))

	products := []uuid.UUID{productX, productY, productZ}
	categories := []uuid.UUID{category1, category2}
	scopes := []model.ApplyTo{model.ApplyToOrder, model.ApplyToProduct, model.ApplyToCategory}

	for round := 0; round < 200; round++ {
		var items []model.CartItem
		for i := 0; i < 1+rng.Intn(4); i++ {
			price := decimal.New(int64(rng.Intn(10000)), -2)
			items = append(items, model.CartItem{
				ProductID:  products[rng.Intn(len(products))],
				CategoryID: categories[rng.Intn(len(categories))],
				UnitPrice:  price,
				Quantity:   1 + rng.Intn(5),
			})
		}

		var promos []*model.Promotion
		var ids []uuid.UUID
		for i := 0; i < 1+rng.Intn(5); i++ {
			p := newPromotion(withPriority(rng.Intn(3)))
			p.ApplyTo = scopes[rng.Intn(len(scopes))]
			switch rng.Intn(3) {
			case 0:
				withPercentage(decimal.NewFromInt(int64(1 + rng.Intn(100))).String())(p)
			case 1:
				withFixedAmount(decimal.NewFromInt(int64(rng.Intn(300))).String())(p)
			default:
				p.DiscountType = model.DiscountTypeFixedPrice
				p.DiscountValue = decimal.NewFromInt(int64(rng.Intn(100)))
			}
			promos = append(promos, p)
			ids = append(ids, p.ID)
		}
		for _, p := range promos {
			withStacking(ids...)(p)
		}

		result := e.Evaluate(Input{Cart: cartOf(items...), Now: testNow, Candidates: promos})

		assert.False(t, result.FinalTotal.IsNegative(), "round %d: final total %s", round, result.FinalTotal)
		assert.True(t, result.TotalDiscount.LessThanOrEqual(result.Subtotal), "round %d", round)
	}
}

func TestEvaluate_StackingSymmetryProperty(t *testing.T) {
	e := newTestEngine()
	cart := cartOf(item(productX, category1, "100", 1))

	a := newPromotion(withPriority(2))
	b := newPromotion(withPriority(1))
	withStacking(b.ID)(a) // b does not list a

	for _, order := range [][]*model.Promotion{{a, b}, {b, a}} {
		result := e.Evaluate(Input{Cart: cart, Now: testNow, Candidates: order})

		applied := result.AppliedIDs()
		assert.False(t, containsID(applied, a.ID) && containsID(applied, b.ID))
	}
}
