package api_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kxshrx/flynch/internal/api"
	"github.com/kxshrx/flynch/internal/api/middleware"
	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/services"
	"github.com/kxshrx/flynch/internal/testutil"
)

const testFrontendURL = "http://localhost:3000"

// stubAuthService satisfies services.AuthService for handler tests that
// only need RequireAuth to resolve a fixed user.
type stubAuthService struct {
	user *domain.User
}

func (s *stubAuthService) Register(_ context.Context, _ domain.RegisterRequest) (*domain.User, error) {
	return s.user, nil
}

func (s *stubAuthService) Login(_ context.Context, _ domain.LoginRequest) (*domain.TokenResponse, error) {
	return &domain.TokenResponse{AccessToken: "stub-token", TokenType: "bearer", User: s.user}, nil
}

func (s *stubAuthService) ValidateToken(_ context.Context, _ string) (*domain.User, error) {
	if s.user == nil {
		return nil, domain.NewAuthenticationError("INVALID_TOKEN", "Invalid or expired token")
	}
	return s.user, nil
}

func (s *stubAuthService) CurrentUser(_ context.Context, _ string) (*domain.User, error) {
	return s.user, nil
}

func (s *stubAuthService) UpdateProfile(
	_ context.Context, _ string, _ domain.UpdateProfileRequest,
) (*domain.User, error) {
	return s.user, nil
}

func (s *stubAuthService) Logout(_ context.Context, _ string) error {
	return nil
}

type stubGitHubLinkService struct {
	initiateResp  *services.GitHubAuthResponse
	initiateErr   error
	callbackUser  *domain.User
	callbackErr   error
	status        *domain.ConnectionStatus
	statusErr     error
	disconnectErr error

	lastCode     string
	lastState    string
	disconnected bool
}

func (s *stubGitHubLinkService) Initiate(_ context.Context, _ string) (*services.GitHubAuthResponse, error) {
	if s.initiateErr != nil {
		return nil, s.initiateErr
	}
	return s.initiateResp, nil
}

func (s *stubGitHubLinkService) HandleCallback(_ context.Context, code, state string) (*domain.User, error) {
	s.lastCode = code
	s.lastState = state
	if s.callbackErr != nil {
		return nil, s.callbackErr
	}
	return s.callbackUser, nil
}

func (s *stubGitHubLinkService) Disconnect(_ context.Context, _ string) error {
	if s.disconnectErr != nil {
		return s.disconnectErr
	}
	s.disconnected = true
	return nil
}

func (s *stubGitHubLinkService) Status(_ context.Context, _ string) (*domain.ConnectionStatus, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	return s.status, nil
}

type stubGitHubSyncService struct {
	repos   []*domain.Repository
	result  *domain.SyncResult
	syncErr error
	listErr error

	lastLimit int
}

func (s *stubGitHubSyncService) Sync(_ context.Context, _ string) (*domain.SyncResult, error) {
	if s.syncErr != nil {
		return nil, s.syncErr
	}
	return s.result, nil
}

func (s *stubGitHubSyncService) List(_ context.Context, _ string, limit int) ([]*domain.Repository, error) {
	s.lastLimit = limit
	if s.listErr != nil {
		return nil, s.listErr
	}
	if limit < len(s.repos) {
		return s.repos[:limit], nil
	}
	return s.repos, nil
}

func setupGitHubTestRouter(
	_ *testing.T,
	linkService services.GitHubLinkService,
	syncService services.GitHubSyncService,
) *gin.Engine {
	router := testutil.NewTestRouter()

	user := testutil.MockUser("user-1", "test@example.com", "tester", "Test User")
	authMiddleware := middleware.NewAuthMiddleware(&stubAuthService{user: user})

	handler := api.NewGitHubHandler(linkService, syncService, testFrontendURL)
	apiGroup := router.Group("/api")
	handler.RegisterRoutes(apiGroup, authMiddleware)

	return router
}

func TestGitHubHandler_Connect(t *testing.T) {
	linkService := &stubGitHubLinkService{
		initiateResp: &services.GitHubAuthResponse{
			AuthURL: "https://github.com/login/oauth/authorize?client_id=test&state=state-1",
			State:   "state-1",
		},
	}
	router := setupGitHubTestRouter(t, linkService, &stubGitHubSyncService{})
	helper := testutil.NewHTTPTestHelper(t, router)

	t.Run("JSON clients get the authorization URL", func(t *testing.T) {
		recorder := helper.GET("/api/auth/github", map[string]string{
			"Authorization": "Bearer mock-token",
			"Accept":        "application/json",
		})
		helper.AssertStatus(recorder, http.StatusOK)

		data := helper.DecodeJSON(recorder)["data"].(map[string]interface{})
		if data["auth_url"] != linkService.initiateResp.AuthURL {
			t.Errorf("Expected auth_url %q, got %v", linkService.initiateResp.AuthURL, data["auth_url"])
		}
		if data["state"] != "state-1" {
			t.Errorf("Expected state state-1, got %v", data["state"])
		}
	})

	t.Run("browsers get redirected to the provider", func(t *testing.T) {
		recorder := helper.GET("/api/auth/github", map[string]string{
			"Authorization": "Bearer mock-token",
		})
		helper.AssertStatus(recorder, http.StatusFound)
		helper.AssertHeader(recorder, "Location", linkService.initiateResp.AuthURL)
	})

	t.Run("requires authentication", func(t *testing.T) {
		recorder := helper.GET("/api/auth/github", nil)
		helper.AssertStatus(recorder, http.StatusUnauthorized)
	})

	t.Run("already linked account conflicts", func(t *testing.T) {
		conflicted := &stubGitHubLinkService{
			initiateErr: domain.NewConflictError("ALREADY_LINKED", "GitHub account already connected"),
		}
		conflictRouter := setupGitHubTestRouter(t, conflicted, &stubGitHubSyncService{})
		conflictHelper := testutil.NewHTTPTestHelper(t, conflictRouter)

		recorder := conflictHelper.GET("/api/auth/github", map[string]string{
			"Authorization": "Bearer mock-token",
		})
		conflictHelper.AssertStatus(recorder, http.StatusConflict)
	})
}

func TestGitHubHandler_Callback(t *testing.T) {
	t.Run("successful callback redirects to the dashboard", func(t *testing.T) {
		linkService := &stubGitHubLinkService{
			callbackUser: testutil.MockUser("user-1", "test@example.com", "tester", "Test User"),
		}
		router := setupGitHubTestRouter(t, linkService, &stubGitHubSyncService{})
		helper := testutil.NewHTTPTestHelper(t, router)

		recorder := helper.GET("/api/auth/github/callback?code=provider-code&state=state-1", nil)
		helper.AssertStatus(recorder, http.StatusFound)
		helper.AssertHeader(recorder, "Location", testFrontendURL+"/dashboard?connected=true")

		if linkService.lastCode != "provider-code" || linkService.lastState != "state-1" {
			t.Errorf("Expected code and state forwarded, got %q %q", linkService.lastCode, linkService.lastState)
		}
	})

	t.Run("invalid state is a bad request", func(t *testing.T) {
		linkService := &stubGitHubLinkService{
			callbackErr: domain.NewStateMismatchError("STATE_MISMATCH", "Authorization state is invalid or already used"),
		}
		router := setupGitHubTestRouter(t, linkService, &stubGitHubSyncService{})
		helper := testutil.NewHTTPTestHelper(t, router)

		recorder := helper.GET("/api/auth/github/callback?code=x&state=reused", nil)
		helper.AssertStatus(recorder, http.StatusBadRequest)
		if !contains(recorder.Body.String(), "STATE_MISMATCH") {
			t.Error("Expected STATE_MISMATCH error code")
		}
	})

	t.Run("provider failure is a bad gateway without upstream detail", func(t *testing.T) {
		linkService := &stubGitHubLinkService{
			callbackErr: domain.NewExternalServiceError(
				"GITHUB_EXCHANGE_FAILED",
				"token exchange rejected: client secret mismatch",
				nil,
			),
		}
		router := setupGitHubTestRouter(t, linkService, &stubGitHubSyncService{})
		helper := testutil.NewHTTPTestHelper(t, router)

		recorder := helper.GET("/api/auth/github/callback?code=x&state=state-1", nil)
		helper.AssertStatus(recorder, http.StatusBadGateway)
		if !contains(recorder.Body.String(), "External service temporarily unavailable") {
			t.Error("Expected the generic external service message")
		}
		if contains(recorder.Body.String(), "client secret") {
			t.Error("Upstream detail must not reach the client")
		}
	})
}

func TestGitHubHandler_Status(t *testing.T) {
	linkService := &stubGitHubLinkService{
		status: &domain.ConnectionStatus{
			Connected:       true,
			Provider:        domain.ProviderGithub,
			ExternalLogin:   "octocat",
			RepositoryCount: 2,
		},
	}
	router := setupGitHubTestRouter(t, linkService, &stubGitHubSyncService{})
	helper := testutil.NewHTTPTestHelper(t, router)

	recorder := helper.GET("/api/github/status", map[string]string{
		"Authorization": "Bearer mock-token",
	})
	helper.AssertStatus(recorder, http.StatusOK)

	data := helper.DecodeJSON(recorder)["data"].(map[string]interface{})
	if data["connected"] != true {
		t.Errorf("Expected connected true, got %v", data["connected"])
	}
	if data["external_login"] != "octocat" {
		t.Errorf("Expected external_login octocat, got %v", data["external_login"])
	}
}

func TestGitHubHandler_ListRepositories(t *testing.T) {
	syncService := &stubGitHubSyncService{
		repos: []*domain.Repository{
			testutil.MockRepo("user-1", 101, "alpha"),
			testutil.MockRepo("user-1", 102, "beta"),
			testutil.MockRepo("user-1", 103, "gamma"),
		},
	}
	router := setupGitHubTestRouter(t, &stubGitHubLinkService{}, syncService)
	helper := testutil.NewHTTPTestHelper(t, router)

	tests := []struct {
		name          string
		url           string
		expectedLimit int
	}{
		{name: "default limit", url: "/api/github/repos", expectedLimit: 50},
		{name: "explicit limit", url: "/api/github/repos?limit=5", expectedLimit: 5},
		{name: "zero falls back to default", url: "/api/github/repos?limit=0", expectedLimit: 50},
		{name: "oversized limit is capped", url: "/api/github/repos?limit=500", expectedLimit: 100},
		{name: "garbage falls back to default", url: "/api/github/repos?limit=abc", expectedLimit: 50},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := helper.GET(tc.url, map[string]string{
				"Authorization": "Bearer mock-token",
			})
			helper.AssertStatus(recorder, http.StatusOK)

			if syncService.lastLimit != tc.expectedLimit {
				t.Errorf("Expected limit %d passed to the service, got %d", tc.expectedLimit, syncService.lastLimit)
			}

			data := helper.DecodeJSON(recorder)["data"].(map[string]interface{})
			if _, ok := data["repositories"]; !ok {
				t.Error("Expected repositories in response")
			}
			if count, _ := data["total_count"].(float64); count != 3 {
				t.Errorf("Expected total_count 3, got %v", data["total_count"])
			}
		})
	}
}

func TestGitHubHandler_Sync(t *testing.T) {
	t.Run("successful sync reports counts", func(t *testing.T) {
		syncService := &stubGitHubSyncService{
			result: &domain.SyncResult{Processed: 7, Pruned: 2},
		}
		router := setupGitHubTestRouter(t, &stubGitHubLinkService{}, syncService)
		helper := testutil.NewHTTPTestHelper(t, router)

		recorder := helper.POST("/api/github/sync", nil, map[string]string{
			"Authorization": "Bearer mock-token",
		})
		helper.AssertStatus(recorder, http.StatusOK)

		data := helper.DecodeJSON(recorder)["data"].(map[string]interface{})
		if data["processed"] != float64(7) {
			t.Errorf("Expected 7 processed, got %v", data["processed"])
		}
		if data["pruned"] != float64(2) {
			t.Errorf("Expected 2 pruned, got %v", data["pruned"])
		}
	})

	t.Run("sync without a link is rejected", func(t *testing.T) {
		syncService := &stubGitHubSyncService{
			syncErr: domain.NewValidationError("GITHUB_NOT_CONNECTED", "GitHub account is not connected", nil),
		}
		router := setupGitHubTestRouter(t, &stubGitHubLinkService{}, syncService)
		helper := testutil.NewHTTPTestHelper(t, router)

		recorder := helper.POST("/api/github/sync", nil, map[string]string{
			"Authorization": "Bearer mock-token",
		})
		helper.AssertStatus(recorder, http.StatusBadRequest)
		if !contains(recorder.Body.String(), "GITHUB_NOT_CONNECTED") {
			t.Error("Expected GITHUB_NOT_CONNECTED error code")
		}
	})
}

func TestGitHubHandler_Disconnect(t *testing.T) {
	linkService := &stubGitHubLinkService{}
	router := setupGitHubTestRouter(t, linkService, &stubGitHubSyncService{})
	helper := testutil.NewHTTPTestHelper(t, router)

	recorder := helper.DELETE("/api/github/connection", map[string]string{
		"Authorization": "Bearer mock-token",
	})
	helper.AssertStatus(recorder, http.StatusOK)

	if !linkService.disconnected {
		t.Error("Expected the link service to be asked to disconnect")
	}
	if !contains(recorder.Body.String(), "GitHub account disconnected") {
		t.Error("Expected disconnect confirmation message")
	}
}
