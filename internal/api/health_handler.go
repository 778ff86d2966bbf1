package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kxshrx/flynch/internal/services"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	healthService *services.HealthService
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(healthService *services.HealthService) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

// RegisterRoutes registers health check routes. The short /healthz and
// /readyz forms exist for orchestrator probe configs; they serve the
// same handlers as the /health group.
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	health := router.Group("/health")
	{
		health.GET("", h.HealthCheck)
		health.GET("/live", h.Liveness)
		health.GET("/ready", h.Readiness)
		health.GET("/detailed", h.DetailedHealth)
	}

	router.GET("/healthz", h.Liveness)
	router.GET("/readyz", h.Readiness)
	router.GET("/ping", PingHandler)
}

// HealthCheck runs every registered checker and reports overall health.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	response := h.healthService.Check(ctx)
	h.renderHealthResponse(c, response)
}

// Liveness returns the liveness status.
func (h *HealthHandler) Liveness(c *gin.Context) {
	response := h.healthService.Liveness()
	c.JSON(http.StatusOK, gin.H{
		"status":      "alive",
		"timestamp":   response.Timestamp,
		"version":     response.Version,
		"uptime":      response.Uptime.String(),
		"environment": response.Environment,
	})
}

// Readiness reports whether the instance should receive traffic.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := h.healthService.Readiness(ctx)
	h.renderHealthResponse(c, response)
}

// DetailedHealth returns full health information including runtime metrics.
func (h *HealthHandler) DetailedHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	response := h.healthService.Check(ctx)
	status := h.mapHealthStatusToHTTP(response.Status)

	c.JSON(status, response)
}

// renderHealthResponse renders a health response with proper status mapping.
func (h *HealthHandler) renderHealthResponse(c *gin.Context, response services.HealthResponse) {
	status := h.mapHealthStatusToHTTP(response.Status)
	c.JSON(status, gin.H{
		"status":      string(response.Status),
		"timestamp":   response.Timestamp,
		"version":     response.Version,
		"uptime":      response.Uptime.String(),
		"environment": response.Environment,
		"checks":      response.Checks,
	})
}

// mapHealthStatusToHTTP maps health status to an HTTP status code.
// Degraded still serves traffic, so it stays 200.
func (h *HealthHandler) mapHealthStatusToHTTP(status services.HealthStatus) int {
	switch status {
	case services.HealthStatusHealthy, services.HealthStatusDegraded:
		return http.StatusOK
	case services.HealthStatusUnhealthy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PingHandler provides a simple ping endpoint.
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
		"time":    time.Now().Unix(),
	})
}
