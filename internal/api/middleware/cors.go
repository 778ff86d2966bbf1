// Package middleware provides HTTP middleware functions.
package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware returns a CORS middleware with configurable options.
func CORSMiddleware(allowedOrigins, allowedMethods, allowedHeaders []string, allowCredentials bool) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if slices.Contains(allowedOrigins, origin) {
			c.Header("Access-Control-Allow-Origin", origin)
		}

		if len(allowedMethods) > 0 {
			c.Header("Access-Control-Allow-Methods", strings.Join(allowedMethods, ", "))
		} else {
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		}

		if len(allowedHeaders) > 0 {
			c.Header("Access-Control-Allow-Headers", strings.Join(allowedHeaders, ", "))
		} else {
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Request-ID")
		}

		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})
}

// DefaultCORSMiddleware returns a CORS middleware with sensible defaults
// for local development.
func DefaultCORSMiddleware() gin.HandlerFunc {
	return CORSMiddleware(
		[]string{"http://localhost:3000", "http://localhost:8080", "http://127.0.0.1:3000", "http://127.0.0.1:8080"},
		[]string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		[]string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"},
		true,
	)
}

// ProductionCORSMiddleware returns a CORS middleware locked to an
// explicit origin allowlist.
func ProductionCORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return CORSMiddleware(
		allowedOrigins,
		[]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		[]string{"Content-Type", "Authorization", "X-Request-ID"},
		true,
	)
}
