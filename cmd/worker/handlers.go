package main

import (
	"github.com/hibiken/asynq"

	promotionJob "promotion-engine/internal/domains/promotion/job"
	"promotion-engine/internal/shared"
	"promotion-engine/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	redemptionRejected *promotionJob.RedemptionRejectedHandler
	catalogRefresh     *promotionJob.CatalogRefreshHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		redemptionRejected: c.RedemptionRejectedJob,
		catalogRefresh:     c.CatalogRefreshJob,
	}
}

// RegisterHandlers registers all handlers with the mux
func (r *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.Handle(shared.TypePromotionRedemptionRejected, r.redemptionRejected)
	mux.Handle(shared.TypePromotionCatalogRefresh, r.catalogRefresh)
}
