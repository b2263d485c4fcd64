// Package ledger enforces usage limits at commit time and records redemptions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promotion-engine/internal/domains/promotion/model"
)

// DefaultTimeout bounds a single redemption.
const DefaultTimeout = 2 * time.Second

// Store performs the atomic compare-and-increment plus the usage insert.
//
// Redeem must return an *model.AppError with ErrCodeDiscountConflict when the
// promotion can no longer be redeemed, and model.ErrDuplicateRedemption when
// the order already holds a usage row for the promotion.
type Store interface {
	Redeem(ctx context.Context, usage *model.PromotionUsage, now time.Time) error
}

// Ledger is the commit-time entry point. Redemption is never retried, so a
// timeout or conflict is final for that order.
type Ledger struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a Ledger. A non-positive timeout uses DefaultTimeout.
func New(store Store, timeout time.Duration, opts ...Option) *Ledger {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	l := &Ledger{store: store, timeout: timeout, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryRedeem records one redemption.
//
// Business Logic:
// 1. Validate the request (no transaction for malformed input)
// 2. Conditional increment of usage_count, then per-customer count, then
//    insert, all in one transaction under a short timeout
// 3. Lost races come back as DISCOUNT_CONFLICT
func (l *Ledger) TryRedeem(ctx context.Context, req model.RedemptionRequest) (*model.PromotionUsage, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewAppError(model.ErrCodeValidationFailed, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	now := l.now().UTC()
	usage := req.ToUsage(now)

	if err := l.store.Redeem(ctx, usage, now); err != nil {
		var appErr *model.AppError
		switch {
		case errors.As(err, &appErr):
			return nil, appErr.
				WithDetail("promotion_id", req.PromotionID.String()).
				WithDetail("order_id", req.OrderID.String())
		case errors.Is(err, model.ErrDuplicateRedemption):
			return nil, err
		case errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("redeem promotion %s: timed out after %s: %w", req.PromotionID, l.timeout, err)
		}
		return nil, fmt.Errorf("redeem promotion %s: %w", req.PromotionID, err)
	}
	return usage, nil
}

// Conflict builds the DISCOUNT_CONFLICT error stores return.
func Conflict(message string) *model.AppError {
	return model.NewAppError(model.ErrCodeDiscountConflict, message)
}
