// Package engine evaluates promotions against a cart snapshot. It performs no
// I/O: callers supply the candidate promotions, the cart and the customer's
// prior redemption counts.
package engine

import (
	"sort"
	"time"

	"promotion-engine/internal/domains/promotion/model"

	"github.com/google/uuid"
)

// DefaultScale is the number of decimal places amounts are rounded to.
const DefaultScale int32 = 2

// Options configures an Engine.
type Options struct {
	// Scale is the currency minor unit, e.g. 2 for cents or 0 for VND.
	Scale int32
}

// Input is everything one evaluation depends on.
type Input struct {
	Cart       model.CartSnapshot
	Customer   *model.CustomerRef // nil for guests
	Code       string
	Now        time.Time
	Candidates []*model.Promotion
}

// Engine wires matcher, calculator and resolver into a single Evaluate call.
// It is stateless and safe for concurrent use.
type Engine struct {
	scale    int32
	matcher  *Matcher
	calc     *Calculator
	resolver *Resolver
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.Scale < 0 {
		opts.Scale = DefaultScale
	}
	calc := NewCalculator(opts.Scale)
	return &Engine{
		scale:    opts.Scale,
		matcher:  NewMatcher(),
		calc:     calc,
		resolver: NewResolver(calc),
	}
}

// Evaluate prices the cart.
//
// Business Logic Flow:
// 1. Deduplicate candidates and order them by priority
// 2. Skip code-only promotions whose code was not presented
// 3. Check eligibility; failures become rejections
// 4. Price each eligible promotion on its own scope; empty results are rejected
// 5. Resolve stacking and compute totals
// 6. Build the coupon outcome for a presented code
//
// Identical inputs always produce an identical result.
func (e *Engine) Evaluate(in Input) *model.EvaluationResult {
	code := model.NormalizeCode(in.Code)

	result := &model.EvaluationResult{
		Applied:      []model.AppliedPromotion{},
		InducedItems: []model.InducedItem{},
		Rejections:   []model.Rejection{},
	}

	var eligible []Candidate
	var couponPromo *model.Promotion

	for _, promo := range orderedCandidates(in.Candidates) {
		if promo.RequiresCode() {
			if code == "" || !promo.MatchesCode(code) {
				continue
			}
			if couponPromo == nil {
				couponPromo = promo
			}
		}

		verdict := e.matcher.Check(promo, in.Cart, in.Customer, code, in.Now)
		if !verdict.Eligible {
			result.Rejections = append(result.Rejections, model.Rejection{
				PromotionID: promo.ID,
				Code:        promo.Code,
				Reason:      verdict.Reason,
				Message:     verdict.Message,
			})
			continue
		}

		if d := e.calc.Compute(promo, verdict.Scope); d.IsEmpty() {
			result.Rejections = append(result.Rejections, emptyDiscountRejection(promo))
			continue
		}

		eligible = append(eligible, Candidate{Promotion: promo, Scope: verdict.Scope})
	}

	res := e.resolver.Resolve(eligible, in.Cart)
	result.Applied = append(result.Applied, res.Applied...)
	result.InducedItems = append(result.InducedItems, res.Induced...)
	result.Rejections = append(result.Rejections, res.Skipped...)

	result.Subtotal = in.Cart.Subtotal().RoundBank(e.scale)
	result.TotalDiscount = res.TotalDiscount
	result.FinalTotal = result.Subtotal.Sub(res.TotalDiscount)

	if code != "" {
		result.Coupon = couponOutcome(code, couponPromo, result)
	}
	return result
}

func emptyDiscountRejection(promo *model.Promotion) model.Rejection {
	rej := model.Rejection{PromotionID: promo.ID, Code: promo.Code}
	if promo.Type == model.TypeBOGO {
		rej.Reason = model.ErrCodeThresholdNotMet
		rej.Message = "no complete buy group in cart"
	} else {
		rej.Reason = model.ErrCodeNotApplicable
		rej.Message = "no discount for this cart"
	}
	return rej
}

func couponOutcome(code string, promo *model.Promotion, result *model.EvaluationResult) *model.CouponOutcome {
	if promo == nil {
		return &model.CouponOutcome{
			Code:    code,
			Reason:  model.ErrCodeCodeNotFound,
			Message: model.ErrCodeCodeNotFound.DefaultMessage(),
		}
	}
	for _, a := range result.Applied {
		if a.PromotionID == promo.ID {
			return &model.CouponOutcome{Code: code, Applied: true}
		}
	}
	if rej, ok := result.RejectionFor(promo.ID); ok {
		return &model.CouponOutcome{Code: code, Reason: rej.Reason, Message: rej.Message}
	}
	return &model.CouponOutcome{
		Code:    code,
		Reason:  model.ErrCodeNotApplicable,
		Message: model.ErrCodeNotApplicable.DefaultMessage(),
	}
}

// orderedCandidates drops nil and duplicate ids and sorts by resolution order.
func orderedCandidates(candidates []*model.Promotion) []*model.Promotion {
	seen := make(map[uuid.UUID]struct{}, len(candidates))
	out := make([]*model.Promotion, 0, len(candidates))
	for _, p := range candidates {
		if p == nil {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return precedes(out[i], out[j])
	})
	return out
}
