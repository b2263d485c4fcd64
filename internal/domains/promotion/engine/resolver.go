package engine

import (
	"fmt"
	"sort"

	"promotion-engine/internal/domains/promotion/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Candidate is an eligible promotion together with its matched scope.
type Candidate struct {
	Promotion *model.Promotion
	Scope     model.Scope
}

// Resolution is the selected combination in application order.
type Resolution struct {
	Applied       []model.AppliedPromotion
	Induced       []model.InducedItem
	Skipped       []model.Rejection
	TotalDiscount decimal.Decimal
}

// Resolver picks which eligible promotions combine and in what order their
// discounts apply.
type Resolver struct {
	calc *Calculator
}

// NewResolver creates a Resolver that prices with calc.
func NewResolver(calc *Calculator) *Resolver {
	return &Resolver{calc: calc}
}

// Resolve selects the final combination.
//
// Business Logic:
// 1. Sort by priority desc, start_date asc, id asc
// 2. Greedy walk: the first candidate is selected; a later one joins only if
//    it and every selected promotion are stackable and list each other
// 3. PRODUCT/CATEGORY discounts are computed on original prices, then
//    clamped to what earlier narrow discounts left on the same lines
// 4. ORDER discounts are computed on subtotal minus the narrow discounts
// 5. The total is clamped to the subtotal; later discounts absorb the clamp
// 6. A promotion left with no discount and no gift is skipped
//
// Selection is greedy by priority, not a search for the largest discount.
func (r *Resolver) Resolve(eligible []Candidate, cart model.CartSnapshot) Resolution {
	sorted := make([]Candidate, len(eligible))
	copy(sorted, eligible)
	sort.SliceStable(sorted, func(i, j int) bool {
		return precedes(sorted[i].Promotion, sorted[j].Promotion)
	})

	res := Resolution{TotalDiscount: decimal.Zero}

	var selected []Candidate
	for _, c := range sorted {
		if blocker := firstIncompatible(c.Promotion, selected); blocker != nil {
			res.Skipped = append(res.Skipped, model.Rejection{
				PromotionID: c.Promotion.ID,
				Code:        c.Promotion.Code,
				Reason:      model.ErrCodeNotCombinable,
				Message:     fmt.Sprintf("cannot be combined with %q", blocker.Name),
			})
			continue
		}
		selected = append(selected, c)
	}

	// Narrow scopes first, then ORDER on what remains
	ordered := make([]Candidate, 0, len(selected))
	for _, c := range selected {
		if c.Promotion.ApplyTo.IsNarrow() {
			ordered = append(ordered, c)
		}
	}
	narrowCount := len(ordered)
	for _, c := range selected {
		if !c.Promotion.ApplyTo.IsNarrow() {
			ordered = append(ordered, c)
		}
	}

	subtotal := cart.Subtotal().RoundBank(r.calc.scale)
	narrowTotal := decimal.Zero
	remaining := subtotal
	lines := newLineBalance(cart)

	for i, c := range ordered {
		narrow := i < narrowCount
		scope := c.Scope
		if !narrow {
			scope.Subtotal = decimal.Max(subtotal.Sub(narrowTotal), decimal.Zero)
		}

		d := r.calc.Compute(c.Promotion, scope)
		amount := decimal.Min(d.Amount, remaining)
		if narrow {
			amount = decimal.Min(amount, lines.available(scope.Items).Truncate(r.calc.scale))
		}

		if amount.IsZero() && !hasFreeGift(d.Induced) {
			res.Skipped = append(res.Skipped, exhaustedRejection(c.Promotion))
			continue
		}

		remaining = remaining.Sub(amount)
		if narrow {
			lines.consume(scope.Items, amount)
			narrowTotal = narrowTotal.Add(amount)
		}

		res.Applied = append(res.Applied, model.AppliedPromotion{
			PromotionID:    c.Promotion.ID,
			Code:           c.Promotion.Code,
			Name:           c.Promotion.Name,
			Type:           c.Promotion.Type,
			ApplyTo:        c.Promotion.ApplyTo,
			ScopeAmount:    scope.Subtotal,
			DiscountAmount: amount,
		})
		res.Induced = append(res.Induced, d.Induced...)
		res.TotalDiscount = res.TotalDiscount.Add(amount)
	}

	return res
}

// precedes is the resolution order: priority desc, start_date asc, id asc.
func precedes(a, b *model.Promotion) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.StartDate.Equal(b.StartDate) {
		return a.StartDate.Before(b.StartDate)
	}
	return a.ID.String() < b.ID.String()
}

// firstIncompatible returns the selected promotion p cannot stack with, or nil.
func firstIncompatible(p *model.Promotion, selected []Candidate) *model.Promotion {
	for _, s := range selected {
		q := s.Promotion
		if !p.DeclaresStackingWith(q.ID) || !q.DeclaresStackingWith(p.ID) {
			return q
		}
	}
	return nil
}

func hasFreeGift(induced []model.InducedItem) bool {
	for _, it := range induced {
		if it.Kind == model.InducedFreeGift {
			return true
		}
	}
	return false
}

// exhaustedRejection explains a selected promotion that earlier discounts
// left with nothing to do.
func exhaustedRejection(promo *model.Promotion) model.Rejection {
	rej := model.Rejection{PromotionID: promo.ID, Code: promo.Code}
	if promo.Type == model.TypeFreeGift {
		rej.Reason = model.ErrCodeThresholdNotMet
		rej.Message = "discounted subtotal is below the gift threshold"
	} else {
		rej.Reason = model.ErrCodeNotApplicable
		rej.Message = "nothing left to discount after other promotions"
	}
	return rej
}

// lineKey groups cart lines a scope always takes or leaves together.
type lineKey struct {
	product  uuid.UUID
	category uuid.UUID
}

// lineBalance is the undiscounted value left on each group of cart lines
// during the narrow pass.
type lineBalance map[lineKey]decimal.Decimal

func newLineBalance(cart model.CartSnapshot) lineBalance {
	b := make(lineBalance, len(cart.Items))
	for _, it := range cart.Items {
		k := lineKey{it.ProductID, it.CategoryID}
		b[k] = b[k].Add(it.LineTotal())
	}
	return b
}

func (b lineBalance) keys(items []model.CartItem) []lineKey {
	seen := make(map[lineKey]struct{}, len(items))
	out := make([]lineKey, 0, len(items))
	for _, it := range items {
		k := lineKey{it.ProductID, it.CategoryID}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func (b lineBalance) available(items []model.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, k := range b.keys(items) {
		total = total.Add(b[k])
	}
	return total
}

// consume takes amount off the scope's lines in cart order.
func (b lineBalance) consume(items []model.CartItem, amount decimal.Decimal) {
	for _, k := range b.keys(items) {
		if !amount.IsPositive() {
			return
		}
		take := decimal.Min(amount, b[k])
		b[k] = b[k].Sub(take)
		amount = amount.Sub(take)
	}
}
