// Package middleware provides HTTP middleware functions.
package middleware

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingConfig holds configuration for the logging middleware.
type LoggingConfig struct {
	Output     io.Writer
	TimeFormat string
	SkipPaths  []string
}

// LoggingMiddleware returns a request logging middleware with custom
// configuration.
func LoggingMiddleware(config LoggingConfig) gin.HandlerFunc {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.TimeFormat == "" {
		config.TimeFormat = "2006/01/02 - 15:04:05"
	}

	return gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			for _, path := range config.SkipPaths {
				if param.Path == path {
					return ""
				}
			}

			requestID := ""
			if param.Keys != nil {
				if id, exists := param.Keys[string(RequestIDKey)]; exists {
					if idStr, ok := id.(string); ok {
						requestID = fmt.Sprintf(" | ReqID: %s", idStr)
					}
				}
			}

			return fmt.Sprintf("[API] %v | %3d | %13v | %15s | %-7s %#v%s\n%s",
				param.TimeStamp.Format(config.TimeFormat),
				param.StatusCode,
				param.Latency,
				param.ClientIP,
				param.Method,
				param.Path,
				requestID,
				param.ErrorMessage,
			)
		},
		Output:    config.Output,
		SkipPaths: config.SkipPaths,
	})
}

// DefaultLoggingMiddleware returns a logging middleware with sensible
// defaults for development.
func DefaultLoggingMiddleware() gin.HandlerFunc {
	return LoggingMiddleware(LoggingConfig{
		Output: os.Stdout,
		SkipPaths: []string{
			"/health",
			"/health/live",
			"/health/ready",
		},
		TimeFormat: "2006/01/02 - 15:04:05",
	})
}

// StructuredLoggingMiddleware logs completed requests through slog so
// production output stays machine-parseable.
func StructuredLoggingMiddleware(logger *slog.Logger, skipPaths ...string) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	skip := make(map[string]struct{}, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = struct{}{}
	}

	return gin.HandlerFunc(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if _, skipped := skip[path]; skipped {
			return
		}

		attrs := []slog.Attr{
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("client_ip", c.ClientIP()),
			slog.Duration("latency", time.Since(start)),
		}
		if requestID := GetRequestID(c); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		logger.LogAttrs(c.Request.Context(), level, "request completed", attrs...)
	})
}
