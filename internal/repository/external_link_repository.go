package repository

import (
	"context"

	"github.com/kxshrx/flynch/internal/domain"
)

// ExternalLinkRepository defines the interface for provider link data access.
type ExternalLinkRepository interface {
	// Upsert creates the link for (user, provider) or replaces the
	// existing one.
	Upsert(ctx context.Context, link *domain.ExternalLink) error

	// GetByUserAndProvider retrieves the link for a user and provider.
	GetByUserAndProvider(ctx context.Context, userID string, provider domain.Provider) (*domain.ExternalLink, error)

	// DeleteByUserAndProvider removes the link for a user and provider.
	DeleteByUserAndProvider(ctx context.Context, userID string, provider domain.Provider) error
}
