package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kxshrx/flynch/internal/domain"
)

// APIClient handles communication with the flynch API
type APIClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewAPIClientFromProfile creates an API client from a profile
func NewAPIClientFromProfile(profile *Profile) *APIClient {
	if profile == nil {
		return nil
	}
	return NewAPIClient(profile.ServerURL, profile.Token)
}

// APIError represents an API error response
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// envelope mirrors the server's response wrapper. Data stays raw so each
// call site can decode it into its own type.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// doRequest performs an HTTP request with authentication
func (c *APIClient) doRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	baseURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	// JoinPath escapes query separators, so split the query off first.
	endpoint, rawQuery, _ := strings.Cut(endpoint, "?")

	fullURL, err := url.JoinPath(baseURL.String(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to join URL path: %w", err)
	}
	if rawQuery != "" {
		fullURL += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// handleResponse unwraps the server envelope and decodes data into result.
// Note: This function automatically closes the response body
//
//nolint:bodyclose // Response body is closed by this function
func (c *APIClient) handleResponse(resp *http.Response, result interface{}) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	if len(body) > 0 {
		if err := json.Unmarshal(body, &env); err != nil && resp.StatusCode < 400 {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	if resp.StatusCode >= 400 {
		apiError := &APIError{
			StatusCode: resp.StatusCode,
		}
		if env.Error != nil {
			apiError.Code = env.Error.Code
			apiError.Message = env.Error.Message
		}
		if apiError.Message == "" {
			apiError.Message = string(body)
		}
		return apiError
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to unmarshal response data: %w", err)
		}
	}

	return nil
}

// Health checks the API health
func (c *APIClient) Health() error {
	ctx := context.Background()
	//nolint:bodyclose // Response body is closed below
	resp, err := c.doRequest(ctx, "GET", "/health", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	// Health responses are unwrapped; only the status code matters here.
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: "server reported unhealthy"}
	}
	return nil
}

// RegisterRequest represents an account registration request
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

// Register creates a new account
func (c *APIClient) Register(req *RegisterRequest) (*domain.User, error) {
	ctx := context.Background()
	//nolint:bodyclose // Response body is closed by handleResponse
	resp, err := c.doRequest(ctx, "POST", "/api/auth/register", req)
	if err != nil {
		return nil, err
	}

	var data struct {
		User domain.User `json:"user"`
	}
	if err := c.handleResponse(resp, &data); err != nil {
		return nil, err
	}

	return &data.User, nil
}

// LoginResponse represents the response from login
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        domain.User `json:"user"`
}

// Login authenticates with a username or email plus password
func (c *APIClient) Login(identifier, password string) (*LoginResponse, error) {
	loginReq := map[string]string{
		"identifier": identifier,
		"password":   password,
	}

	ctx := context.Background()
	//nolint:bodyclose // Response body is closed by handleResponse
	resp, err := c.doRequest(ctx, "POST", "/api/auth/login", loginReq)
	if err != nil {
		return nil, err
	}

	var loginResp LoginResponse
	if err := c.handleResponse(resp, &loginResp); err != nil {
		return nil, err
	}

	// Update client token
	c.Token = loginResp.AccessToken

	return &loginResp, nil
}

// Me retrieves the authenticated user's profile
func (c *APIClient) Me() (*domain.User, error) {
	ctx := context.Background()
	//nolint:bodyclose // Response body is closed by handleResponse
	resp, err := c.doRequest(ctx, "GET", "/api/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var data struct {
		User domain.User `json:"user"`
	}
	if err := c.handleResponse(resp, &data); err != nil {
		return nil, err
	}

	return &data.User, nil
}

// GitHubStatus reports the GitHub connection state
func (c *APIClient) GitHubStatus() (*domain.ConnectionStatus, error) {
	ctx := context.Background()
	//nolint:bodyclose // Response body is closed by handleResponse
	resp, err := c.doRequest(ctx, "GET", "/api/github/status", nil)
	if err != nil {
		return nil, err
	}

	var status domain.ConnectionStatus
	if err := c.handleResponse(resp, &status); err != nil {
		return nil, err
	}

	return &status, nil
}

// GetRepositories retrieves the user's synced repository snapshots
func (c *APIClient) GetRepositories(limit int) ([]domain.Repository, error) {
	endpoint := "/api/github/repos"
	if limit > 0 {
		params := url.Values{}
		params.Add("limit", fmt.Sprintf("%d", limit))
		endpoint += "?" + params.Encode()
	}

	ctx := context.Background()
	//nolint:bodyclose // Response body is closed by handleResponse
	resp, err := c.doRequest(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	var data struct {
		Repositories []domain.Repository `json:"repositories"`
		TotalCount   int                 `json:"total_count"`
	}
	if err := c.handleResponse(resp, &data); err != nil {
		return nil, err
	}

	return data.Repositories, nil
}

// SyncRepositories refreshes the repository snapshots from GitHub
func (c *APIClient) SyncRepositories() (*domain.SyncResult, error) {
	ctx := context.Background()
	//nolint:bodyclose // Response body is closed by handleResponse
	resp, err := c.doRequest(ctx, "POST", "/api/github/sync", nil)
	if err != nil {
		return nil, err
	}

	var result domain.SyncResult
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// TestConnection tests the connection to the API
func (c *APIClient) TestConnection() error {
	return c.Health()
}
