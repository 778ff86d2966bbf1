package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kxshrx/flynch/internal/api/middleware"
	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/services"
)

// LinkedInHandler handles LinkedIn profile upload endpoints.
type LinkedInHandler struct {
	linkedInService services.LinkedInService
}

// NewLinkedInHandler creates a new LinkedIn handler.
func NewLinkedInHandler(linkedInService services.LinkedInService) *LinkedInHandler {
	return &LinkedInHandler{
		linkedInService: linkedInService,
	}
}

// RegisterRoutes registers LinkedIn routes with the router.
func (h *LinkedInHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	linkedin := router.Group("/linkedin")
	linkedin.Use(authMiddleware.RequireAuth())
	{
		linkedin.POST("/upload", h.Upload)
		linkedin.GET("/profile", h.GetProfile)
	}
}

// Upload accepts a PDF profile export and replaces the user's stored
// profile with the extracted content.
func (h *LinkedInHandler) Upload(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		ErrorResponse(c, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found in context"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		ErrorResponse(c, domain.NewValidationError("MISSING_FILE", "A PDF file is required", map[string]interface{}{
			"field": "file",
		}))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ErrorResponse(c, domain.NewInternalError("FILE_OPEN_FAILED", "Failed to read uploaded file", err))
		return
	}
	defer func() {
		_ = file.Close()
	}()

	profile, err := h.linkedInService.Upload(c.Request.Context(), user.ID, fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	CreatedResponse(c, gin.H{
		"profile": profile,
	})
}

// GetProfile returns the user's stored LinkedIn profile.
func (h *LinkedInHandler) GetProfile(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		ErrorResponse(c, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found in context"))
		return
	}

	profile, err := h.linkedInService.Get(c.Request.Context(), user.ID)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, gin.H{
		"profile": profile,
	})
}
