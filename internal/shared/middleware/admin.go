package middleware

import (
	"github.com/gin-gonic/gin"

	"promotion-engine/internal/shared"
	"promotion-engine/internal/shared/response"
)

// RequireRole checks the role set by AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(shared.ContextKeyRole)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		response.Forbidden(c, "Access denied: insufficient role")
		c.Abort()
	}
}

// AdminMiddleware checks if user has admin role
func AdminMiddleware() gin.HandlerFunc {
	return RequireRole(shared.RoleAdmin)
}
