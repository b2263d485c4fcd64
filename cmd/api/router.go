package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"promotion-engine/internal/shared"
	"promotion-engine/internal/shared/middleware"
	"promotion-engine/pkg/container"
)

// roleService is carried by tokens issued to the order pipeline.
const roleService = "service"

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupPromotionRoutes(v1, c)
		setupAdminPromotionRoutes(v1, c)
	}

	return router
}

// ========================================
// PROMOTION ROUTES
// ========================================
func setupPromotionRoutes(v1 *gin.RouterGroup, c *container.Container) {
	promotions := v1.Group("/promotions")
	{
		promotions.POST("/evaluate", middleware.OptionalAuth(c.JWTManager), c.PromotionPublicHandler.Evaluate)
		promotions.POST("/redeem",
			middleware.AuthMiddleware(c.JWTManager),
			middleware.RequireRole(roleService, shared.RoleAdmin),
			c.PromotionPublicHandler.Redeem,
		)
	}
}

func setupAdminPromotionRoutes(v1 *gin.RouterGroup, c *container.Container) {
	admin := v1.Group("/admin/promotions")
	admin.Use(middleware.AuthMiddleware(c.JWTManager), middleware.AdminMiddleware())
	{
		admin.GET("/:id", c.PromotionAdminHandler.GetPromotion)
		admin.PATCH("/:id", c.PromotionAdminHandler.UpdatePromotion)
	}
}

// ========================================
// HEALTH
// ========================================
func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{"database": "ok", "redis": "ok"}

		if err := c.DB.HealthCheck(checkCtx); err != nil {
			status = http.StatusServiceUnavailable
			checks["database"] = err.Error()
		}
		// Redis only backs the catalog cache; a failure degrades, not fails.
		if err := c.Redis.HealthCheck(checkCtx); err != nil {
			checks["redis"] = err.Error()
		}

		ctx.JSON(status, gin.H{
			"status":  http.StatusText(status),
			"version": c.Config.App.Version,
			"checks":  checks,
			"time":    time.Now().UTC(),
		})
	}
}
