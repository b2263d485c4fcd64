package repository

import (
	"context"
	"time"

	"promotion-engine/internal/domains/promotion/model"

	"github.com/google/uuid"
)

// PromotionRepository is the promotion catalog and usage data access.
type PromotionRepository interface {
	// Read operations
	FindByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error)
	FindByCode(ctx context.Context, code string) (*model.Promotion, error)
	ListActiveCandidates(ctx context.Context, now time.Time) ([]*model.Promotion, error)
	CountUserRedemptions(ctx context.Context, userID uuid.UUID, promotionIDs []uuid.UUID) (map[uuid.UUID]int, error)

	// Write operations
	Update(ctx context.Context, promo *model.Promotion) error
	RecordRejection(ctx context.Context, rejection *model.RedemptionRejection) error
}
