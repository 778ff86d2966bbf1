package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/kxshrx/flynch/internal/config"
	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/repository"
)

// GitHubLinkService attaches a GitHub identity to an already
// authenticated local account. The callback trusts nothing but the
// stored single-use state, so a foreign callback cannot graft its
// token onto another account.
type GitHubLinkService interface {
	// Initiate starts the OAuth flow for the authenticated user.
	Initiate(ctx context.Context, userID string) (*GitHubAuthResponse, error)

	// HandleCallback consumes the state, exchanges the code and links
	// the proven GitHub identity to the bound local user.
	HandleCallback(ctx context.Context, code, state string) (*domain.User, error)

	// Disconnect removes the user's GitHub link and local snapshots.
	Disconnect(ctx context.Context, userID string) error

	// Status reports the user's link state.
	Status(ctx context.Context, userID string) (*domain.ConnectionStatus, error)
}

// GitHubAuthResponse contains the OAuth authorization URL
type GitHubAuthResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// gitHubLinkService implements GitHubLinkService.
type gitHubLinkService struct {
	oauth      *oauth2.Config
	stateTTL   time.Duration
	stateStore repository.OAuthStateRepository
	linkRepo   repository.ExternalLinkRepository
	userRepo   repository.UserRepository
	repoRepo   repository.RepoRepository
	syncer     GitHubSyncService

	// apiBaseURL overrides the GitHub API endpoint in tests
	apiBaseURL string
}

// NewGitHubLinkService creates a new GitHub link service.
func NewGitHubLinkService(
	cfg config.GitHubConfig,
	stateStore repository.OAuthStateRepository,
	linkRepo repository.ExternalLinkRepository,
	userRepo repository.UserRepository,
	repoRepo repository.RepoRepository,
	syncer GitHubSyncService,
) GitHubLinkService {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GetGitHubClientID(),
		ClientSecret: cfg.GetGitHubClientSecret(),
		RedirectURL:  cfg.GetGitHubRedirectURL(),
		Scopes:       []string{"user:email", "repo"},
		Endpoint:     endpoints.GitHub,
	}

	return &gitHubLinkService{
		oauth:      oauthConfig,
		stateTTL:   cfg.GetOAuthStateTTL(),
		stateStore: stateStore,
		linkRepo:   linkRepo,
		userRepo:   userRepo,
		repoRepo:   repoRepo,
		syncer:     syncer,
	}
}

// Initiate starts the OAuth flow for the authenticated user.
func (s *gitHubLinkService) Initiate(ctx context.Context, userID string) (*GitHubAuthResponse, error) {
	if userID == "" {
		return nil, domain.NewValidationError("MISSING_USER", "User ID is required", nil)
	}

	// Opportunistic sweep keeps the store from accumulating dead states
	_ = s.stateStore.DeleteExpired(ctx)

	state, err := s.generateState()
	if err != nil {
		return nil, domain.NewInternalError("STATE_GENERATION_FAILED", "Failed to generate OAuth state", err)
	}

	oauthState := &domain.OAuthState{
		ID:        uuid.New().String(),
		State:     state,
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(s.stateTTL),
	}

	if err := s.stateStore.Create(ctx, oauthState); err != nil {
		return nil, domain.NewInternalError("STATE_STORE_FAILED", "Failed to store OAuth state", err)
	}

	return &GitHubAuthResponse{
		AuthURL: s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline),
		State:   state,
	}, nil
}

// HandleCallback consumes the state, exchanges the code and links the
// proven GitHub identity to the bound local user.
func (s *gitHubLinkService) HandleCallback(ctx context.Context, code, state string) (*domain.User, error) {
	if state == "" {
		return nil, domain.NewStateMismatchError("MISSING_STATE", "OAuth state is required")
	}
	if code == "" {
		return nil, domain.NewValidationError("MISSING_CODE", "Authorization code is required", nil)
	}

	// Consume is an atomic take: a replayed or superseded state value
	// cannot pass this point twice.
	storedState, err := s.stateStore.Consume(ctx, state)
	if err != nil {
		return nil, domain.NewStateMismatchError("STATE_MISMATCH", "Unknown or already used OAuth state")
	}

	if storedState.IsExpired() {
		return nil, domain.NewStateMismatchError("STATE_EXPIRED", "OAuth state has expired")
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, domain.NewExternalServiceError("TOKEN_EXCHANGE_FAILED", "Failed to exchange authorization code", err)
	}

	// Prove token ownership and learn the external identity
	client := s.apiClient(ctx, token)
	ghUser, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, domain.NewExternalServiceError("GITHUB_USER_FETCH_FAILED", "Failed to fetch GitHub user", err)
	}

	user, err := s.userRepo.GetByID(ctx, storedState.UserID)
	if err != nil {
		return nil, domain.NewNotFoundError("USER_NOT_FOUND", "Linked user no longer exists")
	}

	link := &domain.ExternalLink{
		UserID:        user.ID,
		Provider:      domain.ProviderGithub,
		ExternalID:    ghUser.GetID(),
		ExternalLogin: ghUser.GetLogin(),
		AccessToken:   token.AccessToken,
		Scopes:        strings.Join(s.oauth.Scopes, " "),
	}
	if err := s.linkRepo.Upsert(ctx, link); err != nil {
		return nil, domain.NewInternalError("LINK_STORE_FAILED", "Failed to store GitHub link", err)
	}

	user.GithubUsername = ghUser.GetLogin()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, domain.NewInternalError("USER_UPDATE_FAILED", "Failed to update user", err)
	}

	// Initial snapshot sync is best-effort; a failure surfaces on the
	// next explicit sync.
	if s.syncer != nil {
		go func(userID string) {
			syncCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			_, _ = s.syncer.Sync(syncCtx, userID)
		}(user.ID)
	}

	return user.Sanitize(), nil
}

// Disconnect removes the user's GitHub link and local snapshots.
func (s *gitHubLinkService) Disconnect(ctx context.Context, userID string) error {
	if _, err := s.linkRepo.GetByUserAndProvider(ctx, userID, domain.ProviderGithub); err != nil {
		if repository.IsNotFound(err) {
			return domain.NewNotFoundError("GITHUB_NOT_CONNECTED", "GitHub account is not connected")
		}
		return domain.NewInternalError("LINK_QUERY_FAILED", "Failed to query GitHub link", err)
	}

	if err := s.linkRepo.DeleteByUserAndProvider(ctx, userID, domain.ProviderGithub); err != nil {
		return domain.NewInternalError("LINK_DELETE_FAILED", "Failed to remove GitHub link", err)
	}

	if err := s.repoRepo.DeleteByUser(ctx, userID); err != nil {
		return domain.NewInternalError("SNAPSHOT_DELETE_FAILED", "Failed to remove repository snapshots", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err == nil && user.GithubUsername != "" {
		user.GithubUsername = ""
		if err := s.userRepo.Update(ctx, user); err != nil {
			return domain.NewInternalError("USER_UPDATE_FAILED", "Failed to update user", err)
		}
	}

	return nil
}

// Status reports the user's link state.
func (s *gitHubLinkService) Status(ctx context.Context, userID string) (*domain.ConnectionStatus, error) {
	status := &domain.ConnectionStatus{Provider: domain.ProviderGithub}

	link, err := s.linkRepo.GetByUserAndProvider(ctx, userID, domain.ProviderGithub)
	if err != nil {
		if repository.IsNotFound(err) {
			return status, nil
		}
		return nil, domain.NewInternalError("LINK_QUERY_FAILED", "Failed to query GitHub link", err)
	}

	status.Connected = true
	status.ExternalLogin = link.ExternalLogin

	count, err := s.repoRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, domain.NewInternalError("SNAPSHOT_COUNT_FAILED", "Failed to count repositories", err)
	}
	status.RepositoryCount = count

	lastSync, err := s.repoRepo.LastSyncedAt(ctx, userID)
	if err != nil {
		return nil, domain.NewInternalError("SNAPSHOT_QUERY_FAILED", "Failed to query sync time", err)
	}
	status.LastSyncedAt = lastSync

	return status, nil
}

// apiClient builds a GitHub client from an exchanged token.
func (s *gitHubLinkService) apiClient(ctx context.Context, token *oauth2.Token) *github.Client {
	client := github.NewClient(s.oauth.Client(ctx, token))
	if s.apiBaseURL != "" {
		if base, err := url.Parse(s.apiBaseURL); err == nil {
			client.BaseURL = base
		}
	}
	return client
}

// generateState generates a cryptographically secure random state string
func (s *gitHubLinkService) generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
