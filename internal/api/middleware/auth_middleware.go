package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/services"
)

// UserContextKey is the key used to store the authenticated user in the
// request context.
const UserContextKey = "user"

// AuthMiddleware guards routes behind bearer token authentication.
type AuthMiddleware struct {
	authService services.AuthService
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// RequireAuth rejects requests that do not carry a valid bearer token.
// On success the resolved user is stored in the context for handlers.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		token := m.extractBearerToken(c)
		if token == "" {
			m.handleAuthError(c, domain.NewAuthenticationError("MISSING_TOKEN", "Authentication token required"))
			return
		}

		user, err := m.authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			m.handleAuthError(c, err)
			return
		}

		c.Set(UserContextKey, user)
		c.Next()
	})
}

// extractBearerToken extracts the token from the Authorization header.
func (m *AuthMiddleware) extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return parts[1]
}

// handleAuthError responds with a consistent envelope and aborts.
func (m *AuthMiddleware) handleAuthError(c *gin.Context, err error) {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		statusCode := http.StatusUnauthorized
		if domainErr.Type == domain.AuthorizationError {
			statusCode = http.StatusForbidden
		}

		c.JSON(statusCode, gin.H{
			"success": false,
			"error": map[string]interface{}{
				"type":    domainErr.Type,
				"code":    domainErr.Code,
				"message": domainErr.Message,
			},
		})
	} else {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": map[string]interface{}{
				"type":    "AUTHENTICATION_ERROR",
				"code":    "INVALID_TOKEN",
				"message": "Invalid authentication token",
			},
		})
	}
	c.Abort()
}

// GetUserFromContext extracts the authenticated user from the Gin context.
func GetUserFromContext(c *gin.Context) (*domain.User, bool) {
	if user, exists := c.Get(UserContextKey); exists {
		if u, ok := user.(*domain.User); ok {
			return u, true
		}
	}
	return nil, false
}

// GetUserFromRequestContext extracts the authenticated user from a
// standard request context.
func GetUserFromRequestContext(ctx context.Context) (*domain.User, bool) {
	if user := ctx.Value(UserContextKey); user != nil {
		if u, ok := user.(*domain.User); ok {
			return u, true
		}
	}
	return nil, false
}
