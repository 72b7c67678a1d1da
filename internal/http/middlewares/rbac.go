package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRole gates a route on the caller's role. RequireAuth must run first.
func (m *AuthMiddleware) RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFromContext(c)

		if !ok {
			abortUnauthorized(c, "Missing identity context")
			return
		}

		if caller.Role != required {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Admin role required",
				},
			})
			return
		}

		c.Next()
	}
}
