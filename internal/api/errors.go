package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kxshrx/flynch/internal/api/middleware"
	"github.com/kxshrx/flynch/internal/domain"
)

// ErrorSanitizer provides safe error handling that prevents information disclosure
type ErrorSanitizer struct {
	logger *slog.Logger
}

// NewErrorSanitizer creates a new error sanitizer with structured logging
func NewErrorSanitizer(logger *slog.Logger) *ErrorSanitizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorSanitizer{logger: logger}
}

// SanitizedErrorResponse provides safe error responses that prevent information disclosure
// while logging detailed errors server-side with correlation IDs
func (s *ErrorSanitizer) SanitizedErrorResponse(c *gin.Context, err error) {
	// Generate correlation ID for tracking
	correlationID := s.getOrCreateCorrelationID(c)

	var domainErr *domain.Error
	isDomainError := errors.As(err, &domainErr)

	// Log detailed error server-side with correlation ID
	s.logErrorWithContext(c, err, correlationID, isDomainError, domainErr)

	// Return sanitized error to client
	statusCode, response := s.sanitizeErrorForClient(domainErr, isDomainError, correlationID)
	c.JSON(statusCode, response)
}

// getOrCreateCorrelationID gets existing correlation ID from context or creates new one
func (s *ErrorSanitizer) getOrCreateCorrelationID(c *gin.Context) string {
	// Check if correlation ID already exists in context
	if id, exists := c.Get("correlation_id"); exists {
		if strID, ok := id.(string); ok {
			return strID
		}
	}

	// Check request headers for existing correlation ID
	if id := c.GetHeader("X-Correlation-ID"); id != "" {
		c.Set("correlation_id", id)
		return id
	}

	// Generate new correlation ID
	correlationID := uuid.New().String()
	c.Set("correlation_id", correlationID)
	c.Header("X-Correlation-ID", correlationID)
	return correlationID
}

// logErrorWithContext logs detailed error information server-side
func (s *ErrorSanitizer) logErrorWithContext(
	c *gin.Context,
	err error,
	correlationID string,
	isDomainError bool,
	domainErr *domain.Error,
) {
	attrs := []slog.Attr{
		slog.String("correlation_id", correlationID),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("remote_addr", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
	}

	if requestID := middleware.GetRequestID(c); requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}

	// Add user context if available
	if user, ok := middleware.GetUserFromContext(c); ok {
		attrs = append(attrs, slog.String("user_id", user.ID))
	}

	if isDomainError {
		attrs = append(attrs,
			slog.String("error_type", string(domainErr.Type)),
			slog.String("error_code", domainErr.Code),
			slog.String("error_message", domainErr.Message),
		)

		// Add cause chain if available
		if domainErr.Cause != nil {
			attrs = append(attrs, slog.String("underlying_error", domainErr.Cause.Error()))
		}

		// Details may carry user input; only non-sensitive keys are logged
		for key, value := range domainErr.Details {
			if !isSensitiveField(key) {
				attrs = append(attrs, slog.Any(fmt.Sprintf("detail_%s", key), value))
			}
		}

		s.logger.LogAttrs(c.Request.Context(), slog.LevelError, "Domain error occurred", attrs...)
	} else {
		attrs = append(attrs, slog.String("error", err.Error()))
		s.logger.LogAttrs(c.Request.Context(), slog.LevelError, "Unexpected system error occurred", attrs...)
	}
}

// sanitizeErrorForClient returns safe error response for client consumption
func (s *ErrorSanitizer) sanitizeErrorForClient(
	domainErr *domain.Error,
	isDomainError bool,
	correlationID string,
) (int, gin.H) {
	if isDomainError {
		statusCode := s.getStatusCodeForDomainError(domainErr.Type)

		errorInfo := map[string]interface{}{
			"type": domainErr.Type,
			"code": domainErr.Code,
		}

		// Client-facing types carry messages written for clients; only
		// internal and upstream failures get replaced with generic text.
		switch domainErr.Type {
		case domain.ValidationError:
			errorInfo["message"] = domainErr.Message
			if field, ok := domainErr.Details["field"]; ok {
				errorInfo["field"] = field
			}
		case domain.NotFoundError,
			domain.ConflictError,
			domain.AuthenticationError,
			domain.AuthorizationError,
			domain.StateMismatchError:
			errorInfo["message"] = domainErr.Message
		case domain.ExternalServiceError:
			errorInfo["message"] = "External service temporarily unavailable"
		default:
			errorInfo["message"] = "An error occurred while processing your request"
		}

		return statusCode, gin.H{
			"success":        false,
			"correlation_id": correlationID,
			"error":          errorInfo,
		}
	}

	// For non-domain errors, return generic message
	return http.StatusInternalServerError, gin.H{
		"success":        false,
		"correlation_id": correlationID,
		"error": map[string]interface{}{
			"type":    "INTERNAL_ERROR",
			"code":    "SYSTEM_ERROR",
			"message": "An unexpected error occurred. Please try again later.",
		},
	}
}

// getStatusCodeForDomainError maps domain error types to HTTP status codes
func (s *ErrorSanitizer) getStatusCodeForDomainError(errorType domain.ErrorType) int {
	switch errorType {
	case domain.ValidationError:
		return http.StatusBadRequest
	case domain.StateMismatchError:
		return http.StatusBadRequest
	case domain.NotFoundError:
		return http.StatusNotFound
	case domain.ConflictError:
		return http.StatusConflict
	case domain.AuthenticationError:
		return http.StatusUnauthorized
	case domain.AuthorizationError:
		return http.StatusForbidden
	case domain.ExternalServiceError:
		return http.StatusBadGateway
	case domain.InternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// isSensitiveField checks if a field contains sensitive information that shouldn't be logged
func isSensitiveField(field string) bool {
	sensitiveFields := map[string]bool{
		"password":        true,
		"token":           true,
		"secret":          true,
		"key":             true,
		"authorization":   true,
		"cookie":          true,
		"session":         true,
		"private_key":     true,
		"access_token":    true,
		"refresh_token":   true,
		"jwt":             true,
		"api_key":         true,
		"state":           true,
		"credit_card":     true,
		"ssn":             true,
		"social_security": true,
	}
	return sensitiveFields[field]
}
