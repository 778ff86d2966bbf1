// Package testutil provides testing utilities and helpers.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kxshrx/flynch/internal/config"
	"github.com/kxshrx/flynch/internal/domain"
)

// TestConfig returns a test configuration. The concrete type satisfies all
// of the segregated config interfaces, so tests can pass it anywhere.
func TestConfig() *config.AppConfig {
	return config.NewConfig()
}

// NewTestRouter creates a new Gin router for testing.
func NewTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// TestCase represents a test case for HTTP handlers.
type TestCase struct {
	Body           interface{}
	ExpectedBody   interface{}
	Headers        map[string]string
	SetupFunc      func(t *testing.T)
	CleanupFunc    func(t *testing.T)
	Name           string
	Method         string
	URL            string
	ExpectedStatus int
}

// HTTPTestHelper provides utilities for HTTP testing.
type HTTPTestHelper struct {
	router *gin.Engine
	t      *testing.T
}

// NewHTTPTestHelper creates a new HTTP test helper.
func NewHTTPTestHelper(t *testing.T, router *gin.Engine) *HTTPTestHelper {
	return &HTTPTestHelper{
		router: router,
		t:      t,
	}
}

// Request performs an HTTP request and returns the response.
func (h *HTTPTestHelper) Request(
	method,
	url string,
	body interface{},
	headers map[string]string,
) *httptest.ResponseRecorder {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("Failed to marshal request body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		h.t.Fatalf("Failed to create request: %v", err)
	}

	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	h.router.ServeHTTP(recorder, req)
	return recorder
}

// GET performs a GET request.
func (h *HTTPTestHelper) GET(url string, headers map[string]string) *httptest.ResponseRecorder {
	return h.Request("GET", url, nil, headers)
}

// POST performs a POST request.
func (h *HTTPTestHelper) POST(url string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	return h.Request("POST", url, body, headers)
}

// PUT performs a PUT request.
func (h *HTTPTestHelper) PUT(url string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	return h.Request("PUT", url, body, headers)
}

// DELETE performs a DELETE request.
func (h *HTTPTestHelper) DELETE(url string, headers map[string]string) *httptest.ResponseRecorder {
	return h.Request("DELETE", url, nil, headers)
}

// AssertStatus asserts that the response has the expected status code.
func (h *HTTPTestHelper) AssertStatus(recorder *httptest.ResponseRecorder, expectedStatus int) {
	if recorder.Code != expectedStatus {
		h.t.Errorf("Status code mismatch. Expected: %d, Actual: %d, Body: %s",
			expectedStatus, recorder.Code, recorder.Body.String())
	}
}

// AssertHeader asserts that the response has the expected header value.
func (h *HTTPTestHelper) AssertHeader(recorder *httptest.ResponseRecorder, header, expectedValue string) {
	actualValue := recorder.Header().Get(header)
	if actualValue != expectedValue {
		h.t.Errorf("Header %s mismatch. Expected: %s, Actual: %s", header, expectedValue, actualValue)
	}
}

// DecodeJSON unmarshals the response body into a map.
func (h *HTTPTestHelper) DecodeJSON(recorder *httptest.ResponseRecorder) map[string]interface{} {
	var decoded map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		h.t.Fatalf("Failed to unmarshal response body %q: %v", recorder.Body.String(), err)
	}
	return decoded
}

// RunTestCases runs a slice of test cases.
func (h *HTTPTestHelper) RunTestCases(testCases []TestCase) {
	for _, tc := range testCases {
		h.t.Run(tc.Name, func(t *testing.T) {
			if tc.SetupFunc != nil {
				tc.SetupFunc(t)
			}

			if tc.CleanupFunc != nil {
				defer tc.CleanupFunc(t)
			}

			recorder := h.Request(tc.Method, tc.URL, tc.Body, tc.Headers)

			h.AssertStatus(recorder, tc.ExpectedStatus)
		})
	}
}

// MockUser creates a user for testing. The password hash corresponds to
// no real password; use SetPassword when a login flow needs one.
func MockUser(id, email, username, fullName string) *domain.User {
	now := time.Now()
	return &domain.User{
		ID:           id,
		Email:        email,
		Username:     username,
		FullName:     fullName,
		PasswordHash: "$2a$10$testhashtesthashtesthashtesthashtesthashtesthashtest12",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// MockRepo creates a repository snapshot for testing.
func MockRepo(userID string, githubID int64, name string) *domain.Repository {
	return &domain.Repository{
		UserID:      userID,
		GithubID:    githubID,
		Name:        name,
		FullName:    "octocat/" + name,
		HTMLURL:     "https://github.com/octocat/" + name,
		Description: "Test repository",
		Language:    "Go",
		Languages:   []string{"Go"},
		Stars:       3,
		FetchedAt:   time.Now().UTC(),
	}
}

// MockLink creates a GitHub link for testing.
func MockLink(userID string, externalID int64, login string) *domain.ExternalLink {
	now := time.Now()
	return &domain.ExternalLink{
		UserID:        userID,
		Provider:      domain.ProviderGithub,
		ExternalID:    externalID,
		ExternalLogin: login,
		AccessToken:   "gho_testtoken",
		Scopes:        "user:email,repo",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
