package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kxshrx/flynch/internal/domain"

	"github.com/google/uuid"
	"github.com/pocketbase/dbx"
)

// sqliteRepoRepository implements RepoRepository on SQLite via dbx.
type sqliteRepoRepository struct {
	db *dbx.DB
}

// NewSQLiteRepoRepository creates a new SQLite repository snapshot store.
func NewSQLiteRepoRepository(db *dbx.DB) RepoRepository {
	return &sqliteRepoRepository{db: db}
}

type repoRow struct {
	ID          string        `db:"id"`
	UserID      string        `db:"user_id"`
	GithubID    int64         `db:"github_id"`
	Name        string        `db:"name"`
	FullName    string        `db:"full_name"`
	HTMLURL     string        `db:"html_url"`
	Description string        `db:"description"`
	Language    string        `db:"language"`
	Languages   string        `db:"languages"`
	Stars       int           `db:"stars"`
	Forks       int           `db:"forks"`
	HasReadme   bool          `db:"has_readme"`
	Readme      string        `db:"readme"`
	PushedAt    sql.NullInt64 `db:"pushed_at"`
	FetchedAt   int64         `db:"fetched_at"`
}

// Upsert creates or refreshes the snapshot for (user, github repo).
func (r *sqliteRepoRepository) Upsert(ctx context.Context, repo *domain.Repository) error {
	if err := repo.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if repo.ID == "" {
		repo.ID = uuid.NewString()
	}
	if repo.FetchedAt.IsZero() {
		repo.FetchedAt = time.Now().UTC()
	}

	languages, err := json.Marshal(repo.Languages)
	if err != nil {
		return fmt.Errorf("failed to encode languages: %w", err)
	}

	params := dbx.Params{
		"id":          repo.ID,
		"user_id":     repo.UserID,
		"github_id":   repo.GithubID,
		"name":        repo.Name,
		"full_name":   repo.FullName,
		"html_url":    repo.HTMLURL,
		"description": repo.Description,
		"language":    repo.Language,
		"languages":   string(languages),
		"stars":       repo.Stars,
		"forks":       repo.Forks,
		"has_readme":  repo.HasReadme,
		"readme":      repo.Readme,
		"pushed_at":   nil,
		"fetched_at":  repo.FetchedAt.Unix(),
	}
	if repo.PushedAt != nil {
		params["pushed_at"] = repo.PushedAt.Unix()
	}

	q := r.db.NewQuery(`
		INSERT INTO repositories
			(id, user_id, github_id, name, full_name, html_url, description, language,
			 languages, stars, forks, has_readme, readme, pushed_at, fetched_at)
		VALUES
			({:id}, {:user_id}, {:github_id}, {:name}, {:full_name}, {:html_url}, {:description}, {:language},
			 {:languages}, {:stars}, {:forks}, {:has_readme}, {:readme}, {:pushed_at}, {:fetched_at})
		ON CONFLICT (user_id, github_id) DO UPDATE SET
			name = excluded.name,
			full_name = excluded.full_name,
			html_url = excluded.html_url,
			description = excluded.description,
			language = excluded.language,
			languages = excluded.languages,
			stars = excluded.stars,
			forks = excluded.forks,
			has_readme = excluded.has_readme,
			readme = excluded.readme,
			pushed_at = excluded.pushed_at,
			fetched_at = excluded.fetched_at
	`).Bind(params)

	if _, err := q.WithContext(ctx).Execute(); err != nil {
		return fmt.Errorf("failed to upsert repository: %w", err)
	}

	return nil
}

// ListByUser retrieves a user's snapshots, newest sync first.
func (r *sqliteRepoRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Repository, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}

	query := r.db.Select().
		From(tableRepositories).
		Where(dbx.HashExp{"user_id": userID}).
		OrderBy("fetched_at DESC", "stars DESC")
	if limit > 0 {
		query.Limit(int64(limit))
	}

	var rows []repoRow
	if err := query.WithContext(ctx).All(&rows); err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	repos := make([]*domain.Repository, len(rows))
	for i := range rows {
		repos[i] = rowToRepo(&rows[i])
	}
	return repos, nil
}

// GetByUserAndName retrieves one snapshot by repository name.
func (r *sqliteRepoRepository) GetByUserAndName(ctx context.Context, userID, name string) (*domain.Repository, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("repository name cannot be empty")
	}

	var row repoRow
	err := r.db.Select().
		From(tableRepositories).
		Where(dbx.HashExp{"user_id": userID, "name": name}).
		WithContext(ctx).
		One(&row)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("repository %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query repository: %w", err)
	}

	return rowToRepo(&row), nil
}

// DeleteMissing removes snapshots whose GitHub ID is not in keep.
func (r *sqliteRepoRepository) DeleteMissing(ctx context.Context, userID string, keep []int64) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("user ID cannot be empty")
	}

	cond := dbx.NewExp("user_id = {:user_id}", dbx.Params{"user_id": userID})
	if len(keep) > 0 {
		ids := make([]interface{}, len(keep))
		for i, id := range keep {
			ids[i] = id
		}
		cond = dbx.And(cond, dbx.Not(dbx.In("github_id", ids...)))
	}

	result, err := r.db.Delete(tableRepositories, cond).WithContext(ctx).Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to prune repositories: %w", err)
	}

	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(pruned), nil
}

// DeleteByUser removes all snapshots for a user.
func (r *sqliteRepoRepository) DeleteByUser(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}

	if _, err := r.db.Delete(tableRepositories, dbx.HashExp{"user_id": userID}).WithContext(ctx).Execute(); err != nil {
		return fmt.Errorf("failed to delete repositories: %w", err)
	}
	return nil
}

// CountByUser returns the number of snapshots for a user.
func (r *sqliteRepoRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("user ID cannot be empty")
	}

	var count int
	err := r.db.Select("COUNT(*)").
		From(tableRepositories).
		Where(dbx.HashExp{"user_id": userID}).
		WithContext(ctx).
		Row(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count repositories: %w", err)
	}
	return count, nil
}

// LastSyncedAt returns the most recent fetch time for a user.
func (r *sqliteRepoRepository) LastSyncedAt(ctx context.Context, userID string) (*time.Time, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}

	var latest sql.NullInt64
	err := r.db.Select("MAX(fetched_at)").
		From(tableRepositories).
		Where(dbx.HashExp{"user_id": userID}).
		WithContext(ctx).
		Row(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to query last sync time: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}

	t := time.Unix(latest.Int64, 0).UTC()
	return &t, nil
}

// rowToRepo converts a database row to a domain.Repository.
func rowToRepo(row *repoRow) *domain.Repository {
	repo := &domain.Repository{
		ID:          row.ID,
		UserID:      row.UserID,
		GithubID:    row.GithubID,
		Name:        row.Name,
		FullName:    row.FullName,
		HTMLURL:     row.HTMLURL,
		Description: row.Description,
		Language:    row.Language,
		Stars:       row.Stars,
		Forks:       row.Forks,
		HasReadme:   row.HasReadme,
		Readme:      row.Readme,
		FetchedAt:   time.Unix(row.FetchedAt, 0).UTC(),
	}
	if row.Languages != "" {
		// Ignore malformed stored JSON, the snapshot refreshes on sync
		_ = json.Unmarshal([]byte(row.Languages), &repo.Languages)
	}
	if row.PushedAt.Valid {
		t := time.Unix(row.PushedAt.Int64, 0).UTC()
		repo.PushedAt = &t
	}
	return repo
}
