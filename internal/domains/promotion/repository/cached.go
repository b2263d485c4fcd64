package repository

import (
	"context"
	"time"

	"promotion-engine/internal/domains/promotion/model"
	"promotion-engine/pkg/cache"
	"promotion-engine/pkg/logger"
)

const activeCandidatesKey = "promotions:active_candidates"

// CachedRepository keeps the active candidate list in the cache. Every other
// call goes straight to the wrapped repository.
//
// A cached list may hold a promotion that expired after the list was filled;
// the matcher re-checks the window on every evaluation.
type CachedRepository struct {
	PromotionRepository
	cache cache.Cache
	ttl   time.Duration
}

var _ PromotionRepository = (*CachedRepository)(nil)

// NewCachedRepository wraps next with a candidate cache.
func NewCachedRepository(next PromotionRepository, c cache.Cache, ttl time.Duration) *CachedRepository {
	return &CachedRepository{PromotionRepository: next, cache: c, ttl: ttl}
}

// ListActiveCandidates serves from the cache and falls back to the database.
// Cache failures are logged and never fail the request. A zero TTL disables
// the cache.
func (r *CachedRepository) ListActiveCandidates(ctx context.Context, now time.Time) ([]*model.Promotion, error) {
	if r.ttl <= 0 {
		return r.PromotionRepository.ListActiveCandidates(ctx, now)
	}

	var cached []*model.Promotion
	found, err := r.cache.Get(ctx, activeCandidatesKey, &cached)
	if err != nil {
		logger.Error("read candidate cache", err)
	}
	if found && err == nil {
		return cached, nil
	}

	promos, err := r.PromotionRepository.ListActiveCandidates(ctx, now)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, activeCandidatesKey, promos, r.ttl); err != nil {
		logger.Error("write candidate cache", err)
	}
	return promos, nil
}

// Update writes through and drops the cached list.
func (r *CachedRepository) Update(ctx context.Context, promo *model.Promotion) error {
	if err := r.PromotionRepository.Update(ctx, promo); err != nil {
		return err
	}
	r.Invalidate(ctx)
	return nil
}

// Invalidate drops the cached candidate list.
func (r *CachedRepository) Invalidate(ctx context.Context) {
	if err := r.cache.Delete(ctx, activeCandidatesKey); err != nil {
		logger.Error("invalidate candidate cache", err)
	}
}
