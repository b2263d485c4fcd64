package engine

import (
	"fmt"
	"time"

	"promotion-engine/internal/domains/promotion/model"

	"github.com/google/uuid"
)

// Verdict is the outcome of a structural eligibility check.
type Verdict struct {
	Eligible bool
	Reason   model.ErrorCode
	Message  string
	Scope    model.Scope
}

func reject(reason model.ErrorCode, format string, args ...interface{}) Verdict {
	msg := reason.DefaultMessage()
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return Verdict{Reason: reason, Message: msg}
}

// Matcher decides whether a promotion applies to a cart, independent of the
// discount math. It holds no state and is safe for concurrent use.
type Matcher struct{}

// NewMatcher creates a Matcher
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Check runs every eligibility rule and returns the first failing reason.
//
// Business Logic:
// 1. Definition must validate, otherwise INVALID_PROMOTION_DEFINITION
// 2. Code-only promotions need a matching code (case-insensitive)
// 3. Kill switch, then the [start, end) window
// 4. Customer targeting, then scope targeting
// 5. Thresholds over the applicable scope
// 6. Usage pre-check (re-verified atomically by the ledger)
func (m *Matcher) Check(
	promo *model.Promotion,
	cart model.CartSnapshot,
	customer *model.CustomerRef,
	code string,
	now time.Time,
) Verdict {
	if err := promo.Validate(); err != nil {
		return reject(model.ErrCodeInvalidDefinition, "invalid promotion definition: %v", err)
	}

	if promo.RequiresCode() && !promo.MatchesCode(code) {
		return reject(model.ErrCodeCodeNotFound, "")
	}

	switch promo.StatusAt(now) {
	case model.StatusInactive:
		return reject(model.ErrCodeCodeInactive, "")
	case model.StatusScheduled:
		return reject(model.ErrCodeCodeNotYetActive, "starts at %s", promo.StartDate.UTC().Format(time.RFC3339))
	case model.StatusExpired:
		return reject(model.ErrCodeCodeExpired, "expired at %s", promo.EndDate.UTC().Format(time.RFC3339))
	}

	if len(promo.CustomerIDs) > 0 {
		if customer == nil || !containsID(promo.CustomerIDs, customer.ID) {
			return reject(model.ErrCodeNotApplicable, "not available for this customer")
		}
	}

	scope, ok := m.ScopeOf(promo, cart)
	if !ok {
		return reject(model.ErrCodeNotApplicable, "")
	}

	if v, failed := checkThresholds(promo, scope); failed {
		return v
	}

	if promo.IsUsageLimitReached() {
		return reject(model.ErrCodeUsageLimitExceeded, "")
	}
	if promo.PerUserLimit != nil {
		if customer == nil {
			return reject(model.ErrCodeNotApplicable, "sign-in required for this promotion")
		}
		if customer.RedemptionsOf(promo.ID) >= *promo.PerUserLimit {
			return reject(model.ErrCodeUsageLimitExceeded, "you have already used this promotion %d time(s)", *promo.PerUserLimit)
		}
	}

	return Verdict{Eligible: true, Scope: scope}
}

// IsEligible is Check reduced to a predicate.
func (m *Matcher) IsEligible(
	promo *model.Promotion,
	cart model.CartSnapshot,
	customer *model.CustomerRef,
	code string,
	now time.Time,
) bool {
	return m.Check(promo, cart, customer, code, now).Eligible
}

// ScopeOf returns the cart portion the discount runs over. ok is false when no
// cart line satisfies the targeting.
//
// PRODUCT and CATEGORY scopes are the qualifying lines. ORDER scope is the
// whole cart, but non-empty product/category lists still require at least one
// qualifying line. A narrow BOGO scope with designated reward products also
// carries the reward lines.
func (m *Matcher) ScopeOf(promo *model.Promotion, cart model.CartSnapshot) (model.Scope, bool) {
	qualifying := make([]model.CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		if qualifies(promo, item) {
			qualifying = append(qualifying, item)
		}
	}
	if len(qualifying) == 0 {
		return model.Scope{}, false
	}
	if promo.ApplyTo == model.ApplyToOrder {
		return model.NewScope(cart.Items), true
	}
	if cfg := promo.BogoConfig; promo.Type == model.TypeBOGO && cfg != nil && !cfg.SameProduct {
		for _, item := range cart.Items {
			if containsID(cfg.GetProductIDs, item.ProductID) && !qualifies(promo, item) {
				qualifying = append(qualifying, item)
			}
		}
	}
	return model.NewScope(qualifying), true
}

func checkThresholds(promo *model.Promotion, scope model.Scope) (Verdict, bool) {
	if promo.MinPurchase != nil && scope.Subtotal.LessThan(*promo.MinPurchase) {
		return reject(model.ErrCodeThresholdNotMet, "minimum purchase is %s", promo.MinPurchase.String()), true
	}
	if promo.MinQuantity != nil && scope.Quantity < *promo.MinQuantity {
		return reject(model.ErrCodeThresholdNotMet, "at least %d item(s) required", *promo.MinQuantity), true
	}
	if promo.MaxQuantity != nil && scope.Quantity > *promo.MaxQuantity {
		return reject(model.ErrCodeThresholdNotMet, "at most %d item(s) allowed", *promo.MaxQuantity), true
	}
	if promo.Type == model.TypeFreeGift && scope.Subtotal.LessThan(promo.FreeGiftConfig.Threshold) {
		return reject(model.ErrCodeThresholdNotMet, "spend %s to get the gift", promo.FreeGiftConfig.Threshold.String()), true
	}
	return Verdict{}, false
}

// qualifies reports whether a line satisfies every non-empty targeting list.
func qualifies(promo *model.Promotion, item model.CartItem) bool {
	if len(promo.ProductIDs) > 0 && !containsID(promo.ProductIDs, item.ProductID) {
		return false
	}
	if len(promo.CategoryIDs) > 0 && !containsID(promo.CategoryIDs, item.CategoryID) {
		return false
	}
	return true
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
