package repository

import (
	"context"
	"time"

	"github.com/kxshrx/flynch/internal/domain"
)

// RepoRepository defines the interface for repository snapshot data access.
type RepoRepository interface {
	// Upsert creates or refreshes the snapshot for (user, github repo).
	Upsert(ctx context.Context, repo *domain.Repository) error

	// ListByUser retrieves a user's snapshots, newest sync first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Repository, error)

	// GetByUserAndName retrieves one snapshot by repository name.
	GetByUserAndName(ctx context.Context, userID, name string) (*domain.Repository, error)

	// DeleteMissing removes snapshots whose GitHub ID is not in keep.
	// Returns the number of pruned rows.
	DeleteMissing(ctx context.Context, userID string, keep []int64) (int, error)

	// DeleteByUser removes all snapshots for a user.
	DeleteByUser(ctx context.Context, userID string) error

	// CountByUser returns the number of snapshots for a user.
	CountByUser(ctx context.Context, userID string) (int, error)

	// LastSyncedAt returns the most recent fetch time for a user, or
	// nil when the user has no snapshots.
	LastSyncedAt(ctx context.Context, userID string) (*time.Time, error)
}
