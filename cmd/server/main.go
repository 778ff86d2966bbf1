// Package main provides the entry point for the flynch API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kxshrx/flynch/internal/api"
	"github.com/kxshrx/flynch/internal/api/middleware"
	"github.com/kxshrx/flynch/internal/config"
	"github.com/kxshrx/flynch/internal/container"
	"github.com/kxshrx/flynch/internal/repository"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx := context.Background()

	if err := run(ctx); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Load .env files before reading configuration. Real environment
	// variables always win over file values.
	if err := config.AutoLoadEnv("."); err != nil {
		return fmt.Errorf("failed to load environment files: %w", err)
	}

	// Load configuration
	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// Open the database before wiring services so a bad path fails fast.
	db, err := repository.OpenDB(cfg.GetDatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("failed to close database", "error", closeErr)
		}
	}()

	// Initialize service container
	diContainer, err := container.InitializeServices(cfg, db, version)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	// The analysis worker pool runs for the life of the process; Stop
	// drains queued work before the database closes.
	analysisService, err := container.ResolveAnalysisService(diContainer)
	if err != nil {
		return fmt.Errorf("failed to resolve analysis service: %w", err)
	}
	analysisService.Start()
	defer analysisService.Stop()

	// Setup Gin router with services
	router, rateLimitManager, err := setupRouter(ctx, cfg, diContainer, logger)
	if err != nil {
		return fmt.Errorf("failed to set up router: %w", err)
	}
	if rateLimitManager != nil {
		defer rateLimitManager.Shutdown()
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.GetServerPort(),
		Handler:      router,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
		IdleTimeout:  cfg.GetIdleTimeout(),
	}

	// Start server in a goroutine
	go func() {
		logger.Info("starting server",
			"addr", server.Addr,
			"environment", cfg.GetEnvironment(),
			"version", version,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
		logger.Info("context canceled")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newLogger builds the process logger: JSON in production, text otherwise.
func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.GetLogLevel() {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// setupRouter configures the Gin router with all middleware and routes.
func setupRouter(
	ctx context.Context,
	cfg *config.AppConfig,
	diContainer container.Container,
	logger *slog.Logger,
) (*gin.Engine, *middleware.RateLimitManager, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestIDMiddleware())
	if cfg.IsProduction() {
		router.Use(middleware.StructuredLoggingMiddleware(logger, "/healthz", "/readyz", "/health/live", "/ping"))
		router.Use(middleware.ProductionRecoveryMiddleware(logger))
		router.Use(middleware.ProductionCORSMiddleware([]string{cfg.GetFrontendURL()}))
	} else {
		router.Use(middleware.DefaultLoggingMiddleware())
		router.Use(middleware.DefaultRecoveryMiddleware())
		router.Use(middleware.DefaultCORSMiddleware())
	}

	// Rate limiting middleware with configuration-driven settings
	var rateLimitManager *middleware.RateLimitManager
	if cfg.IsRateLimitEnabled() {
		rateLimitMiddleware, manager, err := middleware.RateLimitMiddleware(ctx, middleware.RateLimitConfig{
			RequestsPerMinute: cfg.GetRateLimitPerMinute(),
			UseRedis:          cfg.UseRedisRateLimit(),
			RedisAddr:         cfg.GetRedisAddr(),
			RedisPassword:     cfg.GetRedisPassword(),
			RedisDB:           cfg.GetRedisDB(),
			KeyGenerator: func(c *gin.Context) string {
				return c.ClientIP()
			},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to configure rate limiting: %w", err)
		}
		router.Use(rateLimitMiddleware)
		rateLimitManager = manager
	}

	authService, err := container.ResolveAuthService(diContainer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve auth service: %w", err)
	}

	linkService, err := container.ResolveGitHubLinkService(diContainer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve github link service: %w", err)
	}

	syncService, err := container.ResolveGitHubSyncService(diContainer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve github sync service: %w", err)
	}

	linkedInService, err := container.ResolveLinkedInService(diContainer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve linkedin service: %w", err)
	}

	analysisService, err := container.ResolveAnalysisService(diContainer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve analysis service: %w", err)
	}

	broadcaster, err := container.ResolveAnalysisBroadcaster(diContainer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve analysis broadcaster: %w", err)
	}

	healthService, err := container.ResolveHealthService(diContainer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve health service: %w", err)
	}

	authMiddleware := middleware.NewAuthMiddleware(authService)

	apiGroup := router.Group("/api")
	api.NewAuthHandler(authService).RegisterRoutes(apiGroup, authMiddleware)
	api.NewGitHubHandler(linkService, syncService, cfg.GetFrontendURL()).RegisterRoutes(apiGroup, authMiddleware)
	api.NewLinkedInHandler(linkedInService).RegisterRoutes(apiGroup, authMiddleware)
	api.NewAnalysisHandler(analysisService).RegisterRoutes(apiGroup, authMiddleware)
	api.NewEventsHandler(broadcaster, logger).RegisterRoutes(apiGroup, authMiddleware)

	// Health endpoints live at the root, outside /api
	api.NewHealthHandler(healthService).RegisterRoutes(router)

	// Root route
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "flynch-api",
			"version": version,
			"status":  "operational",
			"endpoints": gin.H{
				"health":   "/health",
				"auth":     "/api/auth/*",
				"github":   "/api/github/*",
				"linkedin": "/api/linkedin/*",
				"analyses": "/api/analyses",
				"events":   "/api/events/analyses",
			},
		})
	})

	return router, rateLimitManager, nil
}
