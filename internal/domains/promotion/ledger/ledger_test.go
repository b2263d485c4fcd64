package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"promotion-engine/internal/domains/promotion/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func limitedPromotion(limit int) *model.Promotion {
	return &model.Promotion{
		ID:            uuid.New(),
		Name:          "limited",
		Type:          model.TypeAutomatic,
		DiscountType:  model.DiscountTypeFixedAmount,
		DiscountValue: decimal.NewFromInt(5),
		ApplyTo:       model.ApplyToOrder,
		UsageLimit:    &limit,
		StartDate:     testNow.Add(-time.Hour),
		EndDate:       testNow.Add(time.Hour),
		IsActive:      true,
		Version:       1,
	}
}

func redemption(promotionID uuid.UUID, customer *uuid.UUID) model.RedemptionRequest {
	return model.RedemptionRequest{
		PromotionID:    promotionID,
		CustomerID:     customer,
		OrderID:        uuid.New(),
		DiscountAmount: decimal.NewFromInt(5),
		Subtotal:       decimal.NewFromInt(50),
		Total:          decimal.NewFromInt(45),
	}
}

// ---- mock store ----

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Redeem(ctx context.Context, usage *model.PromotionUsage, now time.Time) error {
	args := m.Called(ctx, usage, now)
	return args.Error(0)
}

func TestLedger_TryRedeem_UsageLimitRace(t *testing.T) {
	const limit = 5
	const racers = 20

	promo := limitedPromotion(limit)
	store := NewMemoryStore(promo)
	l := New(store, time.Second, WithClock(fixedClock))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := l.TryRedeem(context.Background(), redemption(promo.ID, nil))

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
				return
			}
			if model.CodeOf(err) == model.ErrCodeDiscountConflict {
				conflicts++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, limit, winners)
	assert.Equal(t, racers-limit, conflicts)
	assert.Len(t, store.Usages(promo.ID), limit)

	stored, ok := store.Get(promo.ID)
	require.True(t, ok)
	assert.Equal(t, limit, stored.UsageCount)

	// the (N+1)th attempt after the race is rejected as well
	_, err := l.TryRedeem(context.Background(), redemption(promo.ID, nil))
	assert.True(t, errors.Is(err, model.ErrDiscountConflict))
}

func TestLedger_TryRedeem_PerUserLimit(t *testing.T) {
	promo := limitedPromotion(100)
	perUser := 1
	promo.PerUserLimit = &perUser
	store := NewMemoryStore(promo)
	l := New(store, time.Second, WithClock(fixedClock))

	customer := uuid.New()

	usage, err := l.TryRedeem(context.Background(), redemption(promo.ID, &customer))
	require.NoError(t, err)
	assert.Equal(t, &customer, usage.UserID)
	assert.Equal(t, testNow, usage.CreatedAt)

	_, err = l.TryRedeem(context.Background(), redemption(promo.ID, &customer))
	assert.Equal(t, model.ErrCodeDiscountConflict, model.CodeOf(err))

	_, err = l.TryRedeem(context.Background(), redemption(promo.ID, nil))
	assert.Equal(t, model.ErrCodeDiscountConflict, model.CodeOf(err))

	other := uuid.New()
	_, err = l.TryRedeem(context.Background(), redemption(promo.ID, &other))
	assert.NoError(t, err)
	assert.Equal(t, 1, store.CountUserRedemptions(promo.ID, customer))
}

func TestLedger_TryRedeem_SameOrderTwice(t *testing.T) {
	promo := limitedPromotion(10)
	store := NewMemoryStore(promo)
	l := New(store, time.Second, WithClock(fixedClock))

	req := redemption(promo.ID, nil)
	_, err := l.TryRedeem(context.Background(), req)
	require.NoError(t, err)

	_, err = l.TryRedeem(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrDuplicateRedemption)
	assert.Len(t, store.Usages(promo.ID), 1)
}

func TestLedger_TryRedeem_ExpiredAtCommit(t *testing.T) {
	promo := limitedPromotion(10)
	promo.EndDate = testNow
	l := New(NewMemoryStore(promo), time.Second, WithClock(fixedClock))

	_, err := l.TryRedeem(context.Background(), redemption(promo.ID, nil))

	assert.Equal(t, model.ErrCodeDiscountConflict, model.CodeOf(err))
}

func TestLedger_TryRedeem_InvalidRequest(t *testing.T) {
	store := new(mockStore)
	l := New(store, time.Second)

	req := redemption(uuid.Nil, nil)
	_, err := l.TryRedeem(context.Background(), req)

	assert.Equal(t, model.ErrCodeValidationFailed, model.CodeOf(err))
	store.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedger_TryRedeem_StoreErrors(t *testing.T) {
	tests := []struct {
		name     string
		storeErr error
		check    func(t *testing.T, err error)
	}{
		{
			name:     "conflict carries details",
			storeErr: Conflict("usage limit reached"),
			check: func(t *testing.T, err error) {
				var appErr *model.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, model.ErrCodeDiscountConflict, appErr.Code)
				assert.Contains(t, appErr.Details, "order_id")
			},
		},
		{
			name:     "duplicate passes through",
			storeErr: model.ErrDuplicateRedemption,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrDuplicateRedemption)
			},
		},
		{
			name:     "timeout is wrapped",
			storeErr: context.DeadlineExceeded,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, context.DeadlineExceeded)
				assert.Contains(t, err.Error(), "timed out")
			},
		},
		{
			name:     "other errors are wrapped",
			storeErr: errors.New("connection reset"),
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "connection reset")
				assert.Equal(t, model.ErrCodeInternalError, model.CodeOf(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockStore)
			store.On("Redeem", mock.Anything, mock.AnythingOfType("*model.PromotionUsage"), testNow).
				Return(tt.storeErr).Once()
			l := New(store, time.Second, WithClock(fixedClock))

			usage, err := l.TryRedeem(context.Background(), redemption(uuid.New(), nil))

			assert.Nil(t, usage)
			require.Error(t, err)
			tt.check(t, err)
			store.AssertExpectations(t)
		})
	}
}

func TestLedger_TryRedeem_AppliesTimeout(t *testing.T) {
	store := new(mockStore)
	store.On("Redeem", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 50*time.Millisecond
	}), mock.Anything, mock.Anything).Return(nil).Once()

	l := New(store, 50*time.Millisecond)
	_, err := l.TryRedeem(context.Background(), redemption(uuid.New(), nil))

	require.NoError(t, err)
	store.AssertExpectations(t)
}
