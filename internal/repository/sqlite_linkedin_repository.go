package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/kxshrx/flynch/internal/domain"

	"github.com/google/uuid"
	"github.com/pocketbase/dbx"
)

// sqliteLinkedInProfileRepository implements LinkedInProfileRepository on SQLite.
type sqliteLinkedInProfileRepository struct {
	db *dbx.DB
}

// NewSQLiteLinkedInProfileRepository creates a new SQLite profile repository.
func NewSQLiteLinkedInProfileRepository(db *dbx.DB) LinkedInProfileRepository {
	return &sqliteLinkedInProfileRepository{db: db}
}

type linkedInProfileRow struct {
	ID         string `db:"id"`
	UserID     string `db:"user_id"`
	Name       string `db:"name"`
	Headline   string `db:"headline"`
	Location   string `db:"location"`
	Summary    string `db:"summary"`
	Sections   string `db:"sections"`
	SourceFile string `db:"source_file"`
	UploadedAt int64  `db:"uploaded_at"`
}

// Replace stores the profile for a user, overwriting any previous one.
func (r *sqliteLinkedInProfileRepository) Replace(ctx context.Context, profile *domain.LinkedInProfile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if profile.UploadedAt.IsZero() {
		profile.UploadedAt = time.Now().UTC()
	}
	sections := profile.Sections
	if sections == "" {
		sections = "{}"
	}

	q := r.db.NewQuery(`
		INSERT INTO linkedin_profiles
			(id, user_id, name, headline, location, summary, sections, source_file, uploaded_at)
		VALUES
			({:id}, {:user_id}, {:name}, {:headline}, {:location}, {:summary}, {:sections}, {:source_file}, {:uploaded_at})
		ON CONFLICT (user_id) DO UPDATE SET
			id = excluded.id,
			name = excluded.name,
			headline = excluded.headline,
			location = excluded.location,
			summary = excluded.summary,
			sections = excluded.sections,
			source_file = excluded.source_file,
			uploaded_at = excluded.uploaded_at
	`).Bind(dbx.Params{
		"id":          profile.ID,
		"user_id":     profile.UserID,
		"name":        profile.Name,
		"headline":    profile.Headline,
		"location":    profile.Location,
		"summary":     profile.Summary,
		"sections":    sections,
		"source_file": profile.SourceFile,
		"uploaded_at": profile.UploadedAt.Unix(),
	})

	if _, err := q.WithContext(ctx).Execute(); err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}

	return nil
}

// GetByUser retrieves the profile for a user.
func (r *sqliteLinkedInProfileRepository) GetByUser(ctx context.Context, userID string) (*domain.LinkedInProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}

	var row linkedInProfileRow
	err := r.db.Select().
		From(tableLinkedInProfiles).
		Where(dbx.HashExp{"user_id": userID}).
		WithContext(ctx).
		One(&row)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("linkedin profile: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	return &domain.LinkedInProfile{
		ID:         row.ID,
		UserID:     row.UserID,
		Name:       row.Name,
		Headline:   row.Headline,
		Location:   row.Location,
		Summary:    row.Summary,
		Sections:   row.Sections,
		SourceFile: row.SourceFile,
		UploadedAt: time.Unix(row.UploadedAt, 0).UTC(),
	}, nil
}

// DeleteByUser removes the profile for a user.
func (r *sqliteLinkedInProfileRepository) DeleteByUser(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}

	if _, err := r.db.Delete(tableLinkedInProfiles, dbx.HashExp{"user_id": userID}).WithContext(ctx).Execute(); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}
