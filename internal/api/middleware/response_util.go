// Package middleware provides HTTP middleware functions.
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kxshrx/flynch/internal/domain"
)

var (
	middlewareLoggerOnce sync.Once
	middlewareLogger     *slog.Logger
)

// getMiddlewareLogger returns a singleton logger for middleware error
// handling.
func getMiddlewareLogger() *slog.Logger {
	middlewareLoggerOnce.Do(func() {
		middlewareLogger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	})
	return middlewareLogger
}

// sanitizedErrorResponse renders errors raised inside middleware without
// leaking internals. Handlers have their own richer error surface; this
// keeps a matching envelope without an import cycle.
func sanitizedErrorResponse(c *gin.Context, err error) {
	logger := getMiddlewareLogger()

	logger.Error("middleware error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"request_id", GetRequestID(c),
	)

	response := gin.H{
		"success": false,
		"error": gin.H{
			"type":    "INTERNAL_ERROR",
			"code":    "MIDDLEWARE_ERROR",
			"message": "An error occurred processing your request",
		},
	}

	statusCode := http.StatusInternalServerError

	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		if errorInfo, ok := response["error"].(gin.H); ok {
			errorInfo["code"] = domainErr.Code
			errorInfo["type"] = string(domainErr.Type)
			// Only validation messages are safe to pass through here
			if domainErr.Type == domain.ValidationError {
				errorInfo["message"] = domainErr.Message
			}
		}

		switch domainErr.Type {
		case domain.ValidationError, domain.StateMismatchError:
			statusCode = http.StatusBadRequest
		case domain.AuthenticationError:
			statusCode = http.StatusUnauthorized
		case domain.AuthorizationError:
			statusCode = http.StatusForbidden
		case domain.NotFoundError:
			statusCode = http.StatusNotFound
		case domain.ConflictError:
			statusCode = http.StatusConflict
		case domain.ExternalServiceError:
			statusCode = http.StatusBadGateway
		}
	}

	c.JSON(statusCode, response)
}
