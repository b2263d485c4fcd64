package engine

import (
	"sort"

	"promotion-engine/internal/domains/promotion/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount is what one promotion takes off its scope, plus the breakdown kept
// for logging.
type Discount struct {
	Raw       decimal.Decimal     `json:"raw"`
	Amount    decimal.Decimal     `json:"amount"`
	Capped    bool                `json:"capped"`
	CapReason string              `json:"cap_reason,omitempty"`
	Induced   []model.InducedItem `json:"induced,omitempty"`
}

// IsEmpty reports whether the promotion yields nothing for this scope.
func (d Discount) IsEmpty() bool {
	return d.Amount.IsZero() && len(d.Induced) == 0
}

// Calculator computes discount amounts for every discount shape.
type Calculator struct {
	scale int32
}

// NewCalculator creates a Calculator rounding to the given number of decimal
// places (2 for USD, 0 for VND).
func NewCalculator(scale int32) *Calculator {
	return &Calculator{scale: scale}
}

// Compute returns the discount of promo over scope.
//
// Business Logic:
// 1. PERCENTAGE: scope.subtotal × value / 100
// 2. FIXED_AMOUNT: min(value, scope.subtotal)
// 3. FIXED_PRICE: max(0, scope.subtotal − value)
// 4. BOGO: cheapest reward units of each complete group, at get_discount_percentage
// 5. FREE_GIFT: zero-priced induced line once scope.subtotal ≥ threshold
//
// The amount never exceeds scope.subtotal and is capped by max_discount when
// set. Rounding is half-to-even, once, at the end.
func (c *Calculator) Compute(promo *model.Promotion, scope model.Scope) Discount {
	var d Discount

	switch promo.Type {
	case model.TypeBOGO:
		d = c.bogo(promo, scope)
	case model.TypeFreeGift:
		d = c.freeGift(promo, scope)
	default:
		switch promo.DiscountType {
		case model.DiscountTypePercentage:
			d.Raw = scope.Subtotal.Mul(promo.DiscountValue).Div(hundred)
		case model.DiscountTypeFixedAmount:
			d.Raw = promo.DiscountValue
		case model.DiscountTypeFixedPrice:
			d.Raw = scope.Subtotal.Sub(promo.DiscountValue)
		}
	}

	amount := decimal.Max(d.Raw, decimal.Zero)
	if amount.GreaterThan(scope.Subtotal) {
		amount = decimal.Max(scope.Subtotal, decimal.Zero)
		d.Capped = true
		d.CapReason = "exceeds_subtotal"
	}
	if promo.MaxDiscount != nil && amount.GreaterThan(*promo.MaxDiscount) {
		amount = *promo.MaxDiscount
		d.Capped = true
		d.CapReason = "max_discount"
	}

	d.Amount = amount.RoundBank(c.scale)
	return d
}

// bogo applies "buy N, get M" over whole groups only.
func (c *Calculator) bogo(promo *model.Promotion, scope model.Scope) Discount {
	cfg := promo.BogoConfig
	if cfg == nil || cfg.BuyQuantity < 1 || cfg.GetQuantity < 1 {
		return Discount{Raw: decimal.Zero}
	}

	var taken []takenUnits
	if cfg.SameProduct {
		for _, lines := range groupByProduct(triggerLines(promo, scope)) {
			units := 0
			for _, l := range lines {
				units += l.Quantity
			}
			groups := units / (cfg.BuyQuantity + cfg.GetQuantity)
			taken = append(taken, takeCheapest(lines, groups*cfg.GetQuantity)...)
		}
	} else {
		units := 0
		for _, l := range triggerLines(promo, scope) {
			units += l.Quantity
		}
		groups := units / cfg.BuyQuantity
		taken = takeCheapest(rewardLines(cfg, scope), groups*cfg.GetQuantity)
	}

	d := Discount{Raw: decimal.Zero}
	for _, t := range taken {
		unitDiscount := t.item.UnitPrice.Mul(cfg.GetDiscountPercentage).Div(hundred)
		d.Raw = d.Raw.Add(unitDiscount.Mul(decimal.NewFromInt(int64(t.quantity))))
		d.Induced = append(d.Induced, model.InducedItem{
			PromotionID:  promo.ID,
			Kind:         model.InducedBogoReward,
			ProductID:    t.item.ProductID,
			Quantity:     t.quantity,
			UnitPrice:    t.item.UnitPrice,
			UnitDiscount: unitDiscount.RoundBank(c.scale),
		})
	}
	return d
}

func (c *Calculator) freeGift(promo *model.Promotion, scope model.Scope) Discount {
	cfg := promo.FreeGiftConfig
	if cfg == nil || scope.Subtotal.LessThan(cfg.Threshold) {
		return Discount{Raw: decimal.Zero}
	}
	quantity := cfg.Quantity
	if quantity < 1 {
		quantity = 1
	}
	return Discount{
		Raw: decimal.Zero,
		Induced: []model.InducedItem{{
			PromotionID:  promo.ID,
			Kind:         model.InducedFreeGift,
			ProductID:    cfg.ProductID,
			Quantity:     quantity,
			UnitPrice:    decimal.Zero,
			UnitDiscount: decimal.Zero,
		}},
	}
}

// ---- BOGO helpers ----

type takenUnits struct {
	item     model.CartItem
	quantity int
}

// triggerLines are the qualifying scope lines. With designated reward products
// the reward lines never count as triggers.
func triggerLines(promo *model.Promotion, scope model.Scope) []model.CartItem {
	cfg := promo.BogoConfig
	lines := make([]model.CartItem, 0, len(scope.Items))
	for _, item := range scope.Items {
		if !qualifies(promo, item) {
			continue
		}
		if !cfg.SameProduct && containsID(cfg.GetProductIDs, item.ProductID) {
			continue
		}
		lines = append(lines, item)
	}
	return lines
}

func rewardLines(cfg *model.BogoConfig, scope model.Scope) []model.CartItem {
	lines := make([]model.CartItem, 0, len(scope.Items))
	for _, item := range scope.Items {
		if containsID(cfg.GetProductIDs, item.ProductID) {
			lines = append(lines, item)
		}
	}
	return lines
}

// groupByProduct keeps the order in which products first appear.
func groupByProduct(lines []model.CartItem) [][]model.CartItem {
	index := make(map[uuid.UUID]int)
	var groups [][]model.CartItem
	for _, l := range lines {
		i, ok := index[l.ProductID]
		if !ok {
			i = len(groups)
			index[l.ProductID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], l)
	}
	return groups
}

// takeCheapest picks n units from lines, cheapest first. Ties keep cart order.
func takeCheapest(lines []model.CartItem, n int) []takenUnits {
	if n <= 0 || len(lines) == 0 {
		return nil
	}
	sorted := make([]model.CartItem, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UnitPrice.LessThan(sorted[j].UnitPrice)
	})

	var taken []takenUnits
	for _, l := range sorted {
		if n == 0 {
			break
		}
		q := l.Quantity
		if q > n {
			q = n
		}
		if q <= 0 {
			continue
		}
		taken = append(taken, takenUnits{item: l, quantity: q})
		n -= q
	}
	return taken
}
