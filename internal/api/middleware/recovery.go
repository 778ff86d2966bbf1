// Package middleware provides HTTP middleware functions.
package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/kxshrx/flynch/internal/domain"
)

// RecoveryConfig holds configuration for the recovery middleware.
type RecoveryConfig struct {
	// Logger receives panic reports. Defaults to the middleware logger.
	Logger *slog.Logger
	// LogStack controls whether the stack trace is logged.
	LogStack bool
}

// RecoveryMiddleware converts panics into sanitized 500 responses.
func RecoveryMiddleware(config RecoveryConfig) gin.HandlerFunc {
	logger := config.Logger
	if logger == nil {
		logger = getMiddlewareLogger()
	}

	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		attrs := []any{
			"request_id", GetRequestID(c),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"panic", fmt.Sprint(recovered),
		}
		if config.LogStack {
			attrs = append(attrs, "stack", string(debug.Stack()))
		}
		logger.Error("panic recovered", attrs...)

		panicErr := domain.NewInternalError(
			"PANIC_RECOVERED",
			"Panic recovered while handling the request",
			fmt.Errorf("panic: %v", recovered),
		)
		sanitizedErrorResponse(c, panicErr)
	})
}

// DefaultRecoveryMiddleware returns a recovery middleware that logs
// stack traces, suitable for development.
func DefaultRecoveryMiddleware() gin.HandlerFunc {
	return RecoveryMiddleware(RecoveryConfig{LogStack: true})
}

// ProductionRecoveryMiddleware returns a recovery middleware that keeps
// log volume down by omitting stack traces.
func ProductionRecoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return RecoveryMiddleware(RecoveryConfig{Logger: logger})
}
