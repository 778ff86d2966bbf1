// Package api provides the HTTP handlers and shared handler utilities.
//
// Error handling: handlers pass every service error through ErrorResponse,
// which sanitizes it for the client and logs the full detail server-side
// with a correlation ID. Avoid direct c.JSON calls with error payloads.
package api

import (
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
)

var (
	defaultSanitizer *ErrorSanitizer
	sanitizerOnce    sync.Once
)

// getDefaultSanitizer creates a singleton error sanitizer with structured logging
func getDefaultSanitizer() *ErrorSanitizer {
	sanitizerOnce.Do(func() {
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
		defaultSanitizer = NewErrorSanitizer(logger)
	})
	return defaultSanitizer
}

// ErrorResponse handles errors with security-focused sanitization and
// structured logging.
func ErrorResponse(c *gin.Context, err error) {
	getDefaultSanitizer().SanitizedErrorResponse(c, err)
}

// SuccessResponse returns a standardized success response.
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// CreatedResponse returns a standardized created response.
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

// AcceptedResponse returns a standardized accepted response for work
// that continues in the background.
func AcceptedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data":    data,
	})
}
