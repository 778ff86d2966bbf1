package middleware_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kxshrx/flynch/internal/api/middleware"
	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/services"
	"github.com/kxshrx/flynch/internal/testutil"
)

type stubSecurityConfig struct{}

func (stubSecurityConfig) GetJWTSecret() string {
	return "test-secret-that-is-32-characters-long"
}

func (stubSecurityConfig) GetJWTExpiration() time.Duration {
	return 30 * time.Minute
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name            string
		requestIDHeader string
	}{
		{
			name: "generates new request ID when not provided",
		},
		{
			name:            "uses provided request ID",
			requestIDHeader: "test-request-id-123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := testutil.NewTestRouter()
			router.Use(middleware.RequestIDMiddleware())
			router.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{
					"request_id": middleware.GetRequestID(c),
				})
			})

			helper := testutil.NewHTTPTestHelper(t, router)
			headers := make(map[string]string)
			if tt.requestIDHeader != "" {
				headers["X-Request-ID"] = tt.requestIDHeader
			}

			recorder := helper.GET("/test", headers)

			helper.AssertStatus(recorder, http.StatusOK)

			responseRequestID := recorder.Header().Get("X-Request-ID")
			if responseRequestID == "" {
				t.Error("Expected X-Request-ID header in response")
			}

			if tt.requestIDHeader != "" && responseRequestID != tt.requestIDHeader {
				t.Errorf("Expected request ID %s, got %s", tt.requestIDHeader, responseRequestID)
			}

			body := helper.DecodeJSON(recorder)
			if body["request_id"] != responseRequestID {
				t.Errorf("Handler saw request ID %v, header carries %s", body["request_id"], responseRequestID)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		origin         string
		method         string
		expectedOrigin string
		expectedStatus int
	}{
		{
			name:           "allows localhost origin",
			origin:         "http://localhost:3000",
			method:         "GET",
			expectedOrigin: "http://localhost:3000",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "handles preflight request",
			origin:         "http://localhost:3000",
			method:         "OPTIONS",
			expectedOrigin: "http://localhost:3000",
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "allows alternate localhost port",
			origin:         "http://localhost:8080",
			method:         "GET",
			expectedOrigin: "http://localhost:8080",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "ignores unknown origin",
			origin:         "http://evil.example.com",
			method:         "GET",
			expectedOrigin: "",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := testutil.NewTestRouter()
			router.Use(middleware.DefaultCORSMiddleware())
			router.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "ok"})
			})

			helper := testutil.NewHTTPTestHelper(t, router)

			var recorder *httptest.ResponseRecorder
			if tt.method == http.MethodOptions {
				req, _ := http.NewRequestWithContext(context.Background(), http.MethodOptions, "/test", nil)
				req.Header.Set("Origin", tt.origin)
				recorder = httptest.NewRecorder()
				router.ServeHTTP(recorder, req)
			} else {
				recorder = helper.GET("/test", map[string]string{"Origin": tt.origin})
			}

			helper.AssertStatus(recorder, tt.expectedStatus)

			actualOrigin := recorder.Header().Get("Access-Control-Allow-Origin")
			if actualOrigin != tt.expectedOrigin {
				t.Errorf("Expected Access-Control-Allow-Origin %q, got %q", tt.expectedOrigin, actualOrigin)
			}

			if tt.expectedOrigin != "" {
				if recorder.Header().Get("Access-Control-Allow-Methods") == "" {
					t.Error("Expected Access-Control-Allow-Methods header")
				}
				if recorder.Header().Get("Access-Control-Allow-Headers") == "" {
					t.Error("Expected Access-Control-Allow-Headers header")
				}
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		requestCount   int
		expectedStatus int
	}{
		{
			name:           "allows requests under limit",
			requestCount:   5,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "blocks requests over limit",
			requestCount:   12, // More than 10 requests per minute
			expectedStatus: http.StatusTooManyRequests,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := testutil.NewTestRouter()
			router.Use(middleware.DefaultRateLimitMiddleware(10))
			router.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "ok"})
			})

			helper := testutil.NewHTTPTestHelper(t, router)

			var lastStatus int
			for i := 0; i < tt.requestCount; i++ {
				recorder := helper.GET("/test", nil)
				lastStatus = recorder.Code

				if lastStatus == http.StatusTooManyRequests {
					break
				}
			}

			if lastStatus != tt.expectedStatus {
				t.Errorf("Expected final status %d, got %d", tt.expectedStatus, lastStatus)
			}
		})
	}
}

func TestRateLimitMiddleware_SeparateBudgetsPerUser(t *testing.T) {
	router := testutil.NewTestRouter()

	// Simulate an upstream auth middleware switching users per request.
	var currentUser *domain.User
	router.Use(func(c *gin.Context) {
		if currentUser != nil {
			c.Set(middleware.UserContextKey, currentUser)
		}
		c.Next()
	})
	router.Use(middleware.UserBasedRateLimitMiddleware(3))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	helper := testutil.NewHTTPTestHelper(t, router)

	currentUser = testutil.MockUser("user-a", "a@example.com", "alice", "Alice")
	for i := 0; i < 3; i++ {
		recorder := helper.GET("/test", nil)
		helper.AssertStatus(recorder, http.StatusOK)
	}
	recorder := helper.GET("/test", nil)
	helper.AssertStatus(recorder, http.StatusTooManyRequests)

	// A different user is keyed separately and starts fresh.
	currentUser = testutil.MockUser("user-b", "b@example.com", "bob", "Bob")
	recorder = helper.GET("/test", nil)
	helper.AssertStatus(recorder, http.StatusOK)
}

func TestRateLimitManager_Shutdown(t *testing.T) {
	_, manager, err := middleware.RateLimitMiddleware(context.Background(), middleware.RateLimitConfig{
		RequestsPerMinute: 10,
		KeyGenerator: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
	if err != nil {
		t.Fatalf("RateLimitMiddleware failed: %v", err)
	}

	stats := manager.Stats()
	if stats.CacheCapacity != 10000 {
		t.Errorf("Expected default cache capacity 10000, got %d", stats.CacheCapacity)
	}

	done := make(chan struct{})
	go func() {
		manager.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not complete")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		panicValue interface{}
	}{
		{
			name:       "handles panic with string",
			panicValue: "test panic",
		},
		{
			name:       "handles panic with error",
			panicValue: http.ErrAbortHandler,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := testutil.NewTestRouter()
			router.Use(middleware.DefaultRecoveryMiddleware())
			router.GET("/panic", func(_ *gin.Context) {
				panic(tt.panicValue)
			})

			helper := testutil.NewHTTPTestHelper(t, router)
			recorder := helper.GET("/panic", nil)

			helper.AssertStatus(recorder, http.StatusInternalServerError)

			body := helper.DecodeJSON(recorder)
			if body["success"] != false {
				t.Error("Expected success false in panic response")
			}
			errorInfo, ok := body["error"].(map[string]interface{})
			if !ok {
				t.Fatalf("Expected error object, got %v", body["error"])
			}
			if errorInfo["code"] != "PANIC_RECOVERED" {
				t.Errorf("Expected code PANIC_RECOVERED, got %v", errorInfo["code"])
			}
			if msg, _ := errorInfo["message"].(string); strings.Contains(msg, "test panic") {
				t.Errorf("Panic value leaked into response message: %q", msg)
			}
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	router := testutil.NewTestRouter()
	router.Use(middleware.DefaultLoggingMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	helper := testutil.NewHTTPTestHelper(t, router)
	recorder := helper.GET("/test", nil)

	helper.AssertStatus(recorder, http.StatusOK)

	// The logging middleware must not alter the response.
	body := helper.DecodeJSON(recorder)
	if body["message"] != "ok" {
		t.Errorf("Expected message ok, got %v", body["message"])
	}
}

func TestStructuredLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := testutil.NewTestRouter()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.StructuredLoggingMiddleware(logger, "/health"))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	helper := testutil.NewHTTPTestHelper(t, router)

	helper.GET("/test", nil)
	logLine := buf.String()
	if !strings.Contains(logLine, `"path":"/test"`) {
		t.Errorf("Expected request path in log output, got %s", logLine)
	}
	if !strings.Contains(logLine, `"status":200`) {
		t.Errorf("Expected status in log output, got %s", logLine)
	}
	if !strings.Contains(logLine, "request_id") {
		t.Errorf("Expected request_id in log output, got %s", logLine)
	}

	buf.Reset()
	helper.GET("/health", nil)
	if buf.Len() != 0 {
		t.Errorf("Expected skipped path to produce no log output, got %s", buf.String())
	}
}

func TestAuthMiddleware_RequireAuth(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	user := testutil.MockUser("user-1", "test@example.com", "tester", "Test User")
	userRepo.AddUser(user)

	issuer := services.NewTokenIssuer(stubSecurityConfig{})
	authService := services.NewAuthService(userRepo, issuer)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	token, _, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "missing authorization header",
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "MISSING_TOKEN",
		},
		{
			name:           "malformed authorization header",
			authHeader:     "Token abc123",
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "MISSING_TOKEN",
		},
		{
			name:           "invalid token",
			authHeader:     "Bearer not-a-real-token",
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "INVALID_TOKEN",
		},
		{
			name:           "valid token",
			authHeader:     "Bearer " + token,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "lowercase bearer scheme",
			authHeader:     "bearer " + token,
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := testutil.NewTestRouter()
			router.Use(authMiddleware.RequireAuth())
			router.GET("/protected", func(c *gin.Context) {
				authed, ok := middleware.GetUserFromContext(c)
				if !ok {
					t.Error("Expected user in context after RequireAuth")
					c.JSON(http.StatusInternalServerError, gin.H{"error": "no user"})
					return
				}
				c.JSON(http.StatusOK, gin.H{"username": authed.Username})
			})

			helper := testutil.NewHTTPTestHelper(t, router)
			headers := make(map[string]string)
			if tt.authHeader != "" {
				headers["Authorization"] = tt.authHeader
			}

			recorder := helper.GET("/protected", headers)
			helper.AssertStatus(recorder, tt.expectedStatus)

			body := helper.DecodeJSON(recorder)
			if tt.expectedStatus == http.StatusOK {
				if body["username"] != user.Username {
					t.Errorf("Expected username %s, got %v", user.Username, body["username"])
				}
				return
			}

			if body["success"] != false {
				t.Error("Expected success false in error response")
			}
			errorInfo, ok := body["error"].(map[string]interface{})
			if !ok {
				t.Fatalf("Expected error object, got %v", body["error"])
			}
			if errorInfo["code"] != tt.expectedCode {
				t.Errorf("Expected code %s, got %v", tt.expectedCode, errorInfo["code"])
			}
		})
	}
}

func TestAuthMiddleware_RejectsInactiveUser(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	user := testutil.MockUser("user-1", "test@example.com", "tester", "Test User")
	user.IsActive = false
	userRepo.AddUser(user)

	issuer := services.NewTokenIssuer(stubSecurityConfig{})
	authService := services.NewAuthService(userRepo, issuer)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	token, _, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	router := testutil.NewTestRouter()
	router.Use(authMiddleware.RequireAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	helper := testutil.NewHTTPTestHelper(t, router)
	recorder := helper.GET("/protected", map[string]string{"Authorization": "Bearer " + token})

	helper.AssertStatus(recorder, http.StatusUnauthorized)

	body := helper.DecodeJSON(recorder)
	errorInfo, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected error object, got %v", body["error"])
	}
	if errorInfo["code"] != "ACCOUNT_INACTIVE" {
		t.Errorf("Expected code ACCOUNT_INACTIVE, got %v", errorInfo["code"])
	}
}
