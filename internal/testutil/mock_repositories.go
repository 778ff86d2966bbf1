// Package testutil provides testing utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/repository"
)

// MockUserRepository implements UserRepository for testing.
type MockUserRepository struct {
	users            map[string]*domain.User
	ForceCreateError bool
	ForceUpdateError bool
	mu               sync.RWMutex
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]*domain.User),
	}
}

// Create creates a new user. Duplicates fail the way the SQLite driver
// reports them so callers can exercise their translation paths.
func (m *MockUserRepository) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ForceCreateError {
		return fmt.Errorf("failed to insert user: forced error")
	}

	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return fmt.Errorf("failed to insert user: UNIQUE constraint failed: users.email")
		}
		if strings.EqualFold(existing.Username, user.Username) {
			return fmt.Errorf("failed to insert user: UNIQUE constraint failed: users.username")
		}
	}

	m.users[user.ID] = user
	return nil
}

// GetByID retrieves a user by ID.
func (m *MockUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
	}
	return user, nil
}

// GetByEmail retrieves a user by email. Matching is case-insensitive,
// mirroring the NOCASE collation on the real table.
func (m *MockUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
}

// GetByUsername retrieves a user by username.
func (m *MockUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if strings.EqualFold(user.Username, username) {
			return user, nil
		}
	}
	return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
}

// Update updates an existing user.
func (m *MockUserRepository) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ForceUpdateError {
		return fmt.Errorf("failed to update user: forced error")
	}

	if _, exists := m.users[user.ID]; !exists {
		return fmt.Errorf("user: %w", repository.ErrNotFound)
	}

	m.users[user.ID] = user
	return nil
}

// Delete deletes a user by ID.
func (m *MockUserRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[id]; !exists {
		return fmt.Errorf("user: %w", repository.ErrNotFound)
	}

	delete(m.users, id)
	return nil
}

// ExistsByEmail checks if a user exists with the given email.
func (m *MockUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(context.Background(), email)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ExistsByUsername checks if a user exists with the given username.
func (m *MockUserRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	_, err := m.GetByUsername(context.Background(), username)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AddUser adds a user to the mock repository for testing.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

// MockExternalLinkRepository implements ExternalLinkRepository for testing.
type MockExternalLinkRepository struct {
	links            map[string]*domain.ExternalLink
	ForceUpsertError bool
	mu               sync.RWMutex
}

// NewMockExternalLinkRepository creates a new mock link repository.
func NewMockExternalLinkRepository() *MockExternalLinkRepository {
	return &MockExternalLinkRepository{
		links: make(map[string]*domain.ExternalLink),
	}
}

func linkKey(userID string, provider domain.Provider) string {
	return userID + "/" + string(provider)
}

// Upsert creates or replaces the link for (user, provider). The row
// identity survives replacement, as with the real upsert.
func (m *MockExternalLinkRepository) Upsert(_ context.Context, link *domain.ExternalLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ForceUpsertError {
		return fmt.Errorf("failed to upsert external link: forced error")
	}

	key := linkKey(link.UserID, link.Provider)
	if existing, exists := m.links[key]; exists {
		link.ID = existing.ID
		link.CreatedAt = existing.CreatedAt
	} else if link.ID == "" {
		link.ID = uuid.NewString()
	}
	link.UpdatedAt = time.Now().UTC()

	m.links[key] = link
	return nil
}

// GetByUserAndProvider retrieves the link for a user and provider.
func (m *MockExternalLinkRepository) GetByUserAndProvider(
	_ context.Context,
	userID string,
	provider domain.Provider,
) (*domain.ExternalLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.links[linkKey(userID, provider)]
	if !exists {
		return nil, fmt.Errorf("external link: %w", repository.ErrNotFound)
	}
	return link, nil
}

// DeleteByUserAndProvider removes the link for a user and provider.
func (m *MockExternalLinkRepository) DeleteByUserAndProvider(
	_ context.Context,
	userID string,
	provider domain.Provider,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.links, linkKey(userID, provider))
	return nil
}

// AddLink adds a link to the mock repository for testing.
func (m *MockExternalLinkRepository) AddLink(link *domain.ExternalLink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[linkKey(link.UserID, link.Provider)] = link
}

// MockRepoRepository implements RepoRepository for testing.
type MockRepoRepository struct {
	repos            map[string]*domain.Repository
	ForceUpsertError bool
	mu               sync.RWMutex
}

// NewMockRepoRepository creates a new mock snapshot repository.
func NewMockRepoRepository() *MockRepoRepository {
	return &MockRepoRepository{
		repos: make(map[string]*domain.Repository),
	}
}

func repoKey(userID string, githubID int64) string {
	return fmt.Sprintf("%s/%d", userID, githubID)
}

// Upsert creates or refreshes the snapshot for (user, github repo).
func (m *MockRepoRepository) Upsert(_ context.Context, repo *domain.Repository) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ForceUpsertError {
		return fmt.Errorf("failed to upsert repository: forced error")
	}

	key := repoKey(repo.UserID, repo.GithubID)
	if existing, exists := m.repos[key]; exists {
		repo.ID = existing.ID
	} else if repo.ID == "" {
		repo.ID = uuid.NewString()
	}
	if repo.FetchedAt.IsZero() {
		repo.FetchedAt = time.Now().UTC()
	}

	m.repos[key] = repo
	return nil
}

// ListByUser retrieves a user's snapshots, newest sync first.
func (m *MockRepoRepository) ListByUser(_ context.Context, userID string, limit int) ([]*domain.Repository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	repos := make([]*domain.Repository, 0)
	for _, repo := range m.repos {
		if repo.UserID == userID {
			repos = append(repos, repo)
		}
	}

	sort.Slice(repos, func(i, j int) bool {
		if !repos[i].FetchedAt.Equal(repos[j].FetchedAt) {
			return repos[i].FetchedAt.After(repos[j].FetchedAt)
		}
		return repos[i].Stars > repos[j].Stars
	})

	if limit > 0 && len(repos) > limit {
		repos = repos[:limit]
	}
	return repos, nil
}

// GetByUserAndName retrieves one snapshot by repository name.
func (m *MockRepoRepository) GetByUserAndName(_ context.Context, userID, name string) (*domain.Repository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, repo := range m.repos {
		if repo.UserID == userID && repo.Name == name {
			return repo, nil
		}
	}
	return nil, fmt.Errorf("repository: %w", repository.ErrNotFound)
}

// DeleteMissing removes snapshots whose GitHub ID is not in keep.
func (m *MockRepoRepository) DeleteMissing(_ context.Context, userID string, keep []int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keepSet := make(map[int64]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}

	pruned := 0
	for key, repo := range m.repos {
		if repo.UserID != userID {
			continue
		}
		if _, ok := keepSet[repo.GithubID]; !ok {
			delete(m.repos, key)
			pruned++
		}
	}
	return pruned, nil
}

// DeleteByUser removes all snapshots for a user.
func (m *MockRepoRepository) DeleteByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, repo := range m.repos {
		if repo.UserID == userID {
			delete(m.repos, key)
		}
	}
	return nil
}

// CountByUser returns the number of snapshots for a user.
func (m *MockRepoRepository) CountByUser(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, repo := range m.repos {
		if repo.UserID == userID {
			count++
		}
	}
	return count, nil
}

// LastSyncedAt returns the most recent fetch time for a user.
func (m *MockRepoRepository) LastSyncedAt(_ context.Context, userID string) (*time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *time.Time
	for _, repo := range m.repos {
		if repo.UserID != userID {
			continue
		}
		if latest == nil || repo.FetchedAt.After(*latest) {
			t := repo.FetchedAt
			latest = &t
		}
	}
	return latest, nil
}

// AddRepo adds a snapshot to the mock repository for testing.
func (m *MockRepoRepository) AddRepo(repo *domain.Repository) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if repo.ID == "" {
		repo.ID = uuid.NewString()
	}
	m.repos[repoKey(repo.UserID, repo.GithubID)] = repo
}

// MockLinkedInProfileRepository implements LinkedInProfileRepository for testing.
type MockLinkedInProfileRepository struct {
	profiles map[string]*domain.LinkedInProfile
	mu       sync.RWMutex
}

// NewMockLinkedInProfileRepository creates a new mock profile repository.
func NewMockLinkedInProfileRepository() *MockLinkedInProfileRepository {
	return &MockLinkedInProfileRepository{
		profiles: make(map[string]*domain.LinkedInProfile),
	}
}

// Replace stores the profile for a user, overwriting any previous one.
func (m *MockLinkedInProfileRepository) Replace(_ context.Context, profile *domain.LinkedInProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}

	m.profiles[profile.UserID] = profile
	return nil
}

// GetByUser retrieves the profile for a user.
func (m *MockLinkedInProfileRepository) GetByUser(_ context.Context, userID string) (*domain.LinkedInProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profile, exists := m.profiles[userID]
	if !exists {
		return nil, fmt.Errorf("linkedin profile: %w", repository.ErrNotFound)
	}
	return profile, nil
}

// DeleteByUser removes the profile for a user.
func (m *MockLinkedInProfileRepository) DeleteByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.profiles, userID)
	return nil
}

// MockAnalysisRepository implements AnalysisRepository for testing.
type MockAnalysisRepository struct {
	analyses         map[string]*domain.ProjectAnalysis
	ForceCreateError bool
	ForceUpdateError bool
	mu               sync.RWMutex
}

// NewMockAnalysisRepository creates a new mock analysis repository.
func NewMockAnalysisRepository() *MockAnalysisRepository {
	return &MockAnalysisRepository{
		analyses: make(map[string]*domain.ProjectAnalysis),
	}
}

// Create inserts a new analysis row.
func (m *MockAnalysisRepository) Create(_ context.Context, analysis *domain.ProjectAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ForceCreateError {
		return fmt.Errorf("failed to insert analysis: forced error")
	}

	if analysis.ID == "" {
		analysis.ID = uuid.NewString()
	}
	if analysis.Status == "" {
		analysis.Status = domain.AnalysisPending
	}
	now := time.Now().UTC()
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = now
	}
	analysis.UpdatedAt = now

	stored := *analysis
	m.analyses[analysis.ID] = &stored
	return nil
}

// GetByID retrieves an analysis by ID.
func (m *MockAnalysisRepository) GetByID(_ context.Context, id string) (*domain.ProjectAnalysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	analysis, exists := m.analyses[id]
	if !exists {
		return nil, fmt.Errorf("analysis: %w", repository.ErrNotFound)
	}
	copied := *analysis
	return &copied, nil
}

// ListByUser retrieves a user's analyses, newest first.
func (m *MockAnalysisRepository) ListByUser(_ context.Context, userID string, limit int) ([]*domain.ProjectAnalysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	analyses := make([]*domain.ProjectAnalysis, 0)
	for _, analysis := range m.analyses {
		if analysis.UserID == userID {
			copied := *analysis
			analyses = append(analyses, &copied)
		}
	}

	sort.Slice(analyses, func(i, j int) bool {
		return analyses[i].CreatedAt.After(analyses[j].CreatedAt)
	})

	if limit > 0 && len(analyses) > limit {
		analyses = analyses[:limit]
	}
	return analyses, nil
}

// Update persists result fields and status transitions.
func (m *MockAnalysisRepository) Update(_ context.Context, analysis *domain.ProjectAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ForceUpdateError {
		return fmt.Errorf("failed to update analysis: forced error")
	}

	if _, exists := m.analyses[analysis.ID]; !exists {
		return fmt.Errorf("analysis: %w", repository.ErrNotFound)
	}

	analysis.UpdatedAt = time.Now().UTC()
	stored := *analysis
	m.analyses[analysis.ID] = &stored
	return nil
}

// DeleteByUser removes all analyses for a user.
func (m *MockAnalysisRepository) DeleteByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, analysis := range m.analyses {
		if analysis.UserID == userID {
			delete(m.analyses, id)
		}
	}
	return nil
}

// Ensure interfaces are implemented
var (
	_ repository.UserRepository            = (*MockUserRepository)(nil)
	_ repository.ExternalLinkRepository    = (*MockExternalLinkRepository)(nil)
	_ repository.RepoRepository            = (*MockRepoRepository)(nil)
	_ repository.LinkedInProfileRepository = (*MockLinkedInProfileRepository)(nil)
	_ repository.AnalysisRepository        = (*MockAnalysisRepository)(nil)
)
