package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/josiahbryan/userhub/internal/auth"
	"github.com/josiahbryan/userhub/internal/domain/user"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// RequireAuth verifies the bearer token and stashes the caller identity on
// the request context. Handlers take it back out with CallerFromContext and
// pass it to operations explicitly.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "Missing or invalid access token")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		c.Set(ctxCallerKey, user.Caller{
			ID:    claims.UserID,
			Email: claims.Email,
			Role:  claims.Role,
		})

		c.Next()
	}
}

func CallerFromContext(c *gin.Context) (user.Caller, bool) {
	v, ok := c.Get(ctxCallerKey)
	if !ok {
		return user.Caller{}, false
	}

	caller, ok := v.(user.Caller)

	return caller, ok && caller.ID != ""
}

// SetCallerForTest injects a caller the way RequireAuth would. Test helper.
func SetCallerForTest(c *gin.Context, caller user.Caller) {
	c.Set(ctxCallerKey, caller)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}
