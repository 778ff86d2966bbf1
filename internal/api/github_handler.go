package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kxshrx/flynch/internal/api/middleware"
	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/services"
)

// GitHubHandler handles GitHub account linking and repository sync
// endpoints.
type GitHubHandler struct {
	linkService services.GitHubLinkService
	syncService services.GitHubSyncService
	frontendURL string
}

// NewGitHubHandler creates a new GitHub handler.
func NewGitHubHandler(
	linkService services.GitHubLinkService,
	syncService services.GitHubSyncService,
	frontendURL string,
) *GitHubHandler {
	return &GitHubHandler{
		linkService: linkService,
		syncService: syncService,
		frontendURL: frontendURL,
	}
}

// RegisterRoutes registers GitHub routes with the router.
func (h *GitHubHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	auth := router.Group("/auth")
	{
		auth.GET("/github", authMiddleware.RequireAuth(), h.Connect)

		// Public: the provider calls back without our bearer token. The
		// single-use state is what proves the flow's origin.
		auth.GET("/github/callback", h.Callback)
	}

	github := router.Group("/github")
	github.Use(authMiddleware.RequireAuth())
	{
		github.GET("/status", h.Status)
		github.GET("/repos", h.ListRepositories)
		github.POST("/sync", h.Sync)
		github.DELETE("/connection", h.Disconnect)
	}
}

// Connect starts the OAuth flow for the authenticated user. Browsers
// get a redirect to the provider; API clients asking for JSON get the
// authorization URL and state instead.
func (h *GitHubHandler) Connect(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		ErrorResponse(c, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found in context"))
		return
	}

	resp, err := h.linkService.Initiate(c.Request.Context(), user.ID)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		SuccessResponse(c, gin.H{
			"auth_url": resp.AuthURL,
			"state":    resp.State,
		})
		return
	}

	c.Redirect(http.StatusFound, resp.AuthURL)
}

// Callback processes the provider's OAuth callback. Identity derives
// from the stored state, not from a session.
func (h *GitHubHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")

	if _, err := h.linkService.HandleCallback(c.Request.Context(), code, state); err != nil {
		ErrorResponse(c, err)
		return
	}

	c.Redirect(http.StatusFound, h.frontendURL+"/dashboard?connected=true")
}

// Status reports the authenticated user's link state.
func (h *GitHubHandler) Status(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		ErrorResponse(c, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found in context"))
		return
	}

	status, err := h.linkService.Status(c.Request.Context(), user.ID)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, status)
}

// ListRepositories returns the user's stored repository snapshots.
func (h *GitHubHandler) ListRepositories(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		ErrorResponse(c, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found in context"))
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	repos, err := h.syncService.List(c.Request.Context(), user.ID, limit)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, gin.H{
		"repositories": repos,
		"total_count":  len(repos),
	})
}

// Sync refreshes the user's repository snapshots from GitHub.
func (h *GitHubHandler) Sync(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		ErrorResponse(c, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found in context"))
		return
	}

	result, err := h.syncService.Sync(c.Request.Context(), user.ID)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, result)
}

// Disconnect removes the user's GitHub link and local snapshots.
func (h *GitHubHandler) Disconnect(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		ErrorResponse(c, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found in context"))
		return
	}

	if err := h.linkService.Disconnect(c.Request.Context(), user.ID); err != nil {
		ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "GitHub account disconnected",
	})
}
