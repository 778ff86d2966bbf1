package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kxshrx/flynch/internal/api/middleware"
	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/services"
)

// AnalysisHandler handles project analysis endpoints.
type AnalysisHandler struct {
	analysisService services.AnalysisService
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analysisService services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
	}
}

// RegisterRoutes registers analysis routes with the router.
func (h *AnalysisHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	analyses := router.Group("/analyses")
	analyses.Use(authMiddleware.RequireAuth())
	{
		analyses.POST("", h.Request)
		analyses.GET("", h.List)
	}
}

// Request queues analyses for the selected repositories. Work happens
// in the background; progress arrives over the events stream.
func (h *AnalysisHandler) Request(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		ErrorResponse(c, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found in context"))
		return
	}

	var req domain.AnalysisRequest
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

	queued, err := h.analysisService.Request(c.Request.Context(), user.ID, req)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	AcceptedResponse(c, gin.H{
		"queued":      queued,
		"total_count": len(queued),
	})
}

// List returns the user's analyses, newest first.
func (h *AnalysisHandler) List(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		ErrorResponse(c, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found in context"))
		return
	}

	analyses, err := h.analysisService.List(c.Request.Context(), user.ID)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, gin.H{
		"analyses":    analyses,
		"total_count": len(analyses),
	})
}
