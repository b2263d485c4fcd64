package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"promotion-engine/internal/shared"
	"promotion-engine/internal/shared/response"
	"promotion-engine/pkg/jwt"
)

// AuthMiddleware requires a valid bearer token and stores the caller's id
// and role in the context.
func AuthMiddleware(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		if !authenticate(c, manager) {
			return
		}
		c.Next()
	}
}

// OptionalAuth lets guests through. A token that is present but invalid is
// still rejected, so a broken client never silently loses its identity.
func OptionalAuth(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		if !authenticate(c, manager) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, manager *jwt.Manager) bool {
	// Expect "Bearer <token>"
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		response.Unauthorized(c, "invalid authorization header format")
		c.Abort()
		return false
	}

	claims, err := manager.ValidateAccessToken(parts[1])
	if err != nil {
		response.Unauthorized(c, "invalid token")
		c.Abort()
		return false
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		response.Unauthorized(c, "invalid user ID in token")
		c.Abort()
		return false
	}

	c.Set(shared.ContextKeyUserID, userID)
	c.Set(shared.ContextKeyRole, claims.Role)
	return true
}

// UserIDFromContext returns the authenticated caller, or nil for guests.
func UserIDFromContext(c *gin.Context) *uuid.UUID {
	value, exists := c.Get(shared.ContextKeyUserID)
	if !exists {
		return nil
	}
	id, ok := value.(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}
