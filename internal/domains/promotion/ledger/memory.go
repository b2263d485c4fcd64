package ledger

import (
	"context"
	"sync"
	"time"

	"promotion-engine/internal/domains/promotion/model"

	"github.com/google/uuid"
)

type usageKey struct {
	promotionID uuid.UUID
	orderID     uuid.UUID
}

// MemoryStore is a Store kept in process memory. One mutex serialises every
// redemption, which gives the same outcome as the conditional UPDATE.
type MemoryStore struct {
	mu         sync.Mutex
	promotions map[uuid.UUID]*model.Promotion
	usages     []*model.PromotionUsage
	byOrder    map[usageKey]struct{}
}

// NewMemoryStore creates a store seeded with promotions.
func NewMemoryStore(promotions ...*model.Promotion) *MemoryStore {
	s := &MemoryStore{
		promotions: make(map[uuid.UUID]*model.Promotion),
		byOrder:    make(map[usageKey]struct{}),
	}
	for _, p := range promotions {
		s.Put(p)
	}
	return s
}

// Put stores a copy of p, replacing any promotion with the same id.
func (s *MemoryStore) Put(p *model.Promotion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.promotions[p.ID] = &cp
}

// Get returns a copy of the stored promotion.
func (s *MemoryStore) Get(id uuid.UUID) (*model.Promotion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.promotions[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// Usages returns the recorded usage rows for one promotion.
func (s *MemoryStore) Usages(promotionID uuid.UUID) []model.PromotionUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PromotionUsage
	for _, u := range s.usages {
		if u.PromotionID == promotionID {
			out = append(out, *u)
		}
	}
	return out
}

// CountUserRedemptions counts usage rows for (promotion, customer).
func (s *MemoryStore) CountUserRedemptions(promotionID, userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(promotionID, userID)
}

func (s *MemoryStore) countLocked(promotionID, userID uuid.UUID) int {
	n := 0
	for _, u := range s.usages {
		if u.PromotionID == promotionID && u.UserID != nil && *u.UserID == userID {
			n++
		}
	}
	return n
}

// Redeem implements Store.
func (s *MemoryStore) Redeem(ctx context.Context, usage *model.PromotionUsage, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.promotions[usage.PromotionID]
	if !ok {
		return model.ErrPromotionNotFound
	}
	if p.StatusAt(now) != model.StatusActive || p.IsUsageLimitReached() {
		return Conflict("usage limit reached or promotion no longer active")
	}
	if p.PerUserLimit != nil {
		if usage.UserID == nil {
			return Conflict("per-customer limited promotion requires a customer")
		}
		if s.countLocked(p.ID, *usage.UserID) >= *p.PerUserLimit {
			return Conflict("per-customer limit reached")
		}
	}

	key := usageKey{promotionID: usage.PromotionID, orderID: usage.OrderID}
	if _, dup := s.byOrder[key]; dup {
		return model.ErrDuplicateRedemption
	}

	p.UsageCount++
	p.UpdatedAt = now
	cp := *usage
	s.usages = append(s.usages, &cp)
	s.byOrder[key] = struct{}{}
	return nil
}
