package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kxshrx/flynch/internal/api/middleware"
	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/services"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterRoutes registers authentication routes with the router.
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", authMiddleware.RequireAuth(), h.Logout)
		auth.GET("/me", authMiddleware.RequireAuth(), h.Me)
		auth.PUT("/profile", authMiddleware.RequireAuth(), h.UpdateProfile)
	}
}

// Register handles user registration requests.
func (h *AuthHandler) Register(c *gin.Context) {
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": map[string]interface{}{
				"type":    "VALIDATION_ERROR",
				"code":    "INVALID_REQUEST",
				"message": "Invalid request format",
				"details": err.Error(),
			},
		})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	CreatedResponse(c, gin.H{
		"user": user,
	})
}

// Login handles user login requests.
func (h *AuthHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": map[string]interface{}{
				"type":    "VALIDATION_ERROR",
				"code":    "INVALID_REQUEST",
				"message": "Invalid request format",
				"details": err.Error(),
			},
		})
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	SuccessResponse(c, gin.H{
		"access_token": token.AccessToken,
		"token_type":   token.TokenType,
		"expires_in":   token.ExpiresIn,
		"user":         token.User,
	})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		h.handleError(c, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found in context"))
		return
	}

	// Re-read so a profile change or deactivation since token issue shows up
	current, err := h.authService.CurrentUser(c.Request.Context(), user.Username)
	if err != nil {
		h.handleError(c, err)
		return
	}

	SuccessResponse(c, gin.H{
		"user": current,
	})
}

// UpdateProfile updates the authenticated user's mutable profile fields.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		h.handleError(c, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found in context"))
		return
	}

	var req domain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": map[string]interface{}{
				"type":    "VALIDATION_ERROR",
				"code":    "INVALID_REQUEST",
				"message": "Invalid request format",
				"details": err.Error(),
			},
		})
		return
	}

	updated, err := h.authService.UpdateProfile(c.Request.Context(), user.Username, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	SuccessResponse(c, gin.H{
		"user": updated,
	})
}

// Logout handles user logout requests. Tokens stay valid until expiry;
// this endpoint exists so clients have a uniform logout call.
func (h *AuthHandler) Logout(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		h.handleError(c, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found in context"))
		return
	}

	if err := h.authService.Logout(c.Request.Context(), user.ID); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Successfully logged out",
	})
}

// handleError handles domain errors with appropriate HTTP status codes.
func (h *AuthHandler) handleError(c *gin.Context, err error) {
	ErrorResponse(c, err)
}
