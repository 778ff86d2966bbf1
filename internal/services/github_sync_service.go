package services

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/google/go-github/v66/github"

	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/repository"
)

// GitHubSyncService mirrors a linked user's public repositories into
// local snapshots. It only ever receives an identity the session guard
// resolved; the link token never leaves the service layer.
type GitHubSyncService interface {
	// Sync refreshes the user's snapshots from GitHub.
	Sync(ctx context.Context, userID string) (*domain.SyncResult, error)

	// List returns the user's stored snapshots, newest sync first.
	List(ctx context.Context, userID string, limit int) ([]*domain.Repository, error)
}

// gitHubSyncService implements GitHubSyncService on the go-github client.
type gitHubSyncService struct {
	linkRepo repository.ExternalLinkRepository
	repoRepo repository.RepoRepository

	// apiBaseURL overrides the GitHub API endpoint in tests
	apiBaseURL string
}

// NewGitHubSyncService creates a new GitHub sync service.
func NewGitHubSyncService(
	linkRepo repository.ExternalLinkRepository,
	repoRepo repository.RepoRepository,
) GitHubSyncService {
	return &gitHubSyncService{
		linkRepo: linkRepo,
		repoRepo: repoRepo,
	}
}

// Sync refreshes the user's snapshots from GitHub.
func (s *gitHubSyncService) Sync(ctx context.Context, userID string) (*domain.SyncResult, error) {
	link, err := s.linkRepo.GetByUserAndProvider(ctx, userID, domain.ProviderGithub)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NewValidationError("GITHUB_NOT_CONNECTED", "GitHub account is not connected", nil)
		}
		return nil, domain.NewInternalError("LINK_QUERY_FAILED", "Failed to query GitHub link", err)
	}

	client := s.apiClient(link.AccessToken)
	now := time.Now().UTC()

	opts := &github.RepositoryListByAuthenticatedUserOptions{
		Visibility:  "public",
		Affiliation: "owner",
		Sort:        "pushed",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	processed := 0
	seen := make([]int64, 0, 64)

	for {
		repos, resp, err := client.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, domain.NewExternalServiceError("GITHUB_LIST_FAILED", "Failed to list GitHub repositories", err)
		}

		for _, ghRepo := range repos {
			snapshot := s.snapshotFromGitHub(ctx, client, userID, ghRepo, now)
			if err := s.repoRepo.Upsert(ctx, snapshot); err != nil {
				return nil, domain.NewInternalError("SNAPSHOT_STORE_FAILED", "Failed to store repository snapshot", err)
			}
			seen = append(seen, snapshot.GithubID)
			processed++
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	pruned, err := s.repoRepo.DeleteMissing(ctx, userID, seen)
	if err != nil {
		return nil, domain.NewInternalError("SNAPSHOT_PRUNE_FAILED", "Failed to prune repository snapshots", err)
	}

	return &domain.SyncResult{Processed: processed, Pruned: pruned}, nil
}

// List returns the user's stored snapshots, newest sync first.
func (s *gitHubSyncService) List(ctx context.Context, userID string, limit int) ([]*domain.Repository, error) {
	repos, err := s.repoRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, domain.NewInternalError("SNAPSHOT_QUERY_FAILED", "Failed to list repository snapshots", err)
	}
	return repos, nil
}

// snapshotFromGitHub converts one GitHub repository to a local
// snapshot, enriching it with languages and README best-effort.
func (s *gitHubSyncService) snapshotFromGitHub(
	ctx context.Context,
	client *github.Client,
	userID string,
	ghRepo *github.Repository,
	fetchedAt time.Time,
) *domain.Repository {
	snapshot := &domain.Repository{
		UserID:      userID,
		GithubID:    ghRepo.GetID(),
		Name:        ghRepo.GetName(),
		FullName:    ghRepo.GetFullName(),
		HTMLURL:     ghRepo.GetHTMLURL(),
		Description: ghRepo.GetDescription(),
		Language:    ghRepo.GetLanguage(),
		Stars:       ghRepo.GetStargazersCount(),
		Forks:       ghRepo.GetForksCount(),
		FetchedAt:   fetchedAt,
	}
	if ghRepo.PushedAt != nil {
		pushed := ghRepo.PushedAt.Time
		snapshot.PushedAt = &pushed
	}

	owner := ghRepo.GetOwner().GetLogin()
	name := ghRepo.GetName()

	if langs, _, err := client.Repositories.ListLanguages(ctx, owner, name); err == nil {
		for lang := range langs {
			snapshot.Languages = append(snapshot.Languages, lang)
		}
		sort.Strings(snapshot.Languages)
	}

	if readme, _, err := client.Repositories.GetReadme(ctx, owner, name, nil); err == nil {
		if content, err := readme.GetContent(); err == nil {
			snapshot.HasReadme = true
			snapshot.Readme = content
		}
	}

	return snapshot
}

// apiClient builds a GitHub client from a stored link token.
func (s *gitHubSyncService) apiClient(accessToken string) *github.Client {
	client := github.NewClient(http.DefaultClient).WithAuthToken(accessToken)
	if s.apiBaseURL != "" {
		if base, err := url.Parse(s.apiBaseURL); err == nil {
			client.BaseURL = base
		}
	}
	return client
}
