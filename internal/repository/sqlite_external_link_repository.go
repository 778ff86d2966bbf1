package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/kxshrx/flynch/internal/domain"

	"github.com/google/uuid"
	"github.com/pocketbase/dbx"
)

// sqliteExternalLinkRepository implements ExternalLinkRepository on SQLite.
type sqliteExternalLinkRepository struct {
	db *dbx.DB
}

// NewSQLiteExternalLinkRepository creates a new SQLite external link repository.
func NewSQLiteExternalLinkRepository(db *dbx.DB) ExternalLinkRepository {
	return &sqliteExternalLinkRepository{db: db}
}

type externalLinkRow struct {
	ID            string `db:"id"`
	UserID        string `db:"user_id"`
	Provider      string `db:"provider"`
	ExternalID    int64  `db:"external_id"`
	ExternalLogin string `db:"external_login"`
	AccessToken   string `db:"access_token"`
	Scopes        string `db:"scopes"`
	CreatedAt     int64  `db:"created_at"`
	UpdatedAt     int64  `db:"updated_at"`
}

// Upsert creates or replaces the link for (user, provider). The unique
// constraint on the pair keeps one link per provider per user.
func (r *sqliteExternalLinkRepository) Upsert(ctx context.Context, link *domain.ExternalLink) error {
	if err := link.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.UpdatedAt = now

	q := r.db.NewQuery(`
		INSERT INTO external_links
			(id, user_id, provider, external_id, external_login, access_token, scopes, created_at, updated_at)
		VALUES
			({:id}, {:user_id}, {:provider}, {:external_id}, {:external_login}, {:access_token}, {:scopes}, {:created_at}, {:updated_at})
		ON CONFLICT (user_id, provider) DO UPDATE SET
			external_id = excluded.external_id,
			external_login = excluded.external_login,
			access_token = excluded.access_token,
			scopes = excluded.scopes,
			updated_at = excluded.updated_at
	`).Bind(dbx.Params{
		"id":             link.ID,
		"user_id":        link.UserID,
		"provider":       string(link.Provider),
		"external_id":    link.ExternalID,
		"external_login": link.ExternalLogin,
		"access_token":   link.AccessToken,
		"scopes":         link.Scopes,
		"created_at":     link.CreatedAt.Unix(),
		"updated_at":     link.UpdatedAt.Unix(),
	})

	if _, err := q.WithContext(ctx).Execute(); err != nil {
		return fmt.Errorf("failed to upsert external link: %w", err)
	}

	return nil
}

// GetByUserAndProvider retrieves the link for a user and provider.
func (r *sqliteExternalLinkRepository) GetByUserAndProvider(
	ctx context.Context,
	userID string,
	provider domain.Provider,
) (*domain.ExternalLink, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}

	var row externalLinkRow
	err := r.db.Select().
		From(tableExternalLinks).
		Where(dbx.HashExp{"user_id": userID, "provider": string(provider)}).
		WithContext(ctx).
		One(&row)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("external link: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query external link: %w", err)
	}

	return rowToExternalLink(&row), nil
}

// DeleteByUserAndProvider removes the link for a user and provider.
func (r *sqliteExternalLinkRepository) DeleteByUserAndProvider(
	ctx context.Context,
	userID string,
	provider domain.Provider,
) error {
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}

	_, err := r.db.Delete(
		tableExternalLinks,
		dbx.HashExp{"user_id": userID, "provider": string(provider)},
	).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("failed to delete external link: %w", err)
	}

	return nil
}

// rowToExternalLink converts a database row to a domain.ExternalLink.
func rowToExternalLink(row *externalLinkRow) *domain.ExternalLink {
	return &domain.ExternalLink{
		ID:            row.ID,
		UserID:        row.UserID,
		Provider:      domain.Provider(row.Provider),
		ExternalID:    row.ExternalID,
		ExternalLogin: row.ExternalLogin,
		AccessToken:   row.AccessToken,
		Scopes:        row.Scopes,
		CreatedAt:     time.Unix(row.CreatedAt, 0).UTC(),
		UpdatedAt:     time.Unix(row.UpdatedAt, 0).UTC(),
	}
}
