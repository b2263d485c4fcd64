package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"promotion-engine/internal/domains/promotion/model"
)

// CatalogWarmer is satisfied by *repository.CachedRepository.
type CatalogWarmer interface {
	Invalidate(ctx context.Context)
	ListActiveCandidates(ctx context.Context, now time.Time) ([]*model.Promotion, error)
}

// CatalogRefreshHandler drops and refills the cached candidate list so
// promotions that started or ended since the last fill are picked up.
type CatalogRefreshHandler struct {
	catalog CatalogWarmer
	now     func() time.Time
}

func NewCatalogRefreshHandler(catalog CatalogWarmer) *CatalogRefreshHandler {
	return &CatalogRefreshHandler{catalog: catalog, now: func() time.Time { return time.Now().UTC() }}
}

func (h *CatalogRefreshHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	start := time.Now()
	h.catalog.Invalidate(ctx)

	promos, err := h.catalog.ListActiveCandidates(ctx, h.now())
	if err != nil {
		return fmt.Errorf("refill candidate cache: %w", err)
	}

	log.Info().
		Int("candidates", len(promos)).
		Dur("duration", time.Since(start)).
		Msg("Catalog cache refreshed")
	return nil
}
