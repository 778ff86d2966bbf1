package repository

import (
	"context"

	"github.com/kxshrx/flynch/internal/domain"
)

// LinkedInProfileRepository defines the interface for profile data access.
type LinkedInProfileRepository interface {
	// Replace stores the profile for a user, overwriting any previous one.
	Replace(ctx context.Context, profile *domain.LinkedInProfile) error

	// GetByUser retrieves the profile for a user.
	GetByUser(ctx context.Context, userID string) (*domain.LinkedInProfile, error)

	// DeleteByUser removes the profile for a user.
	DeleteByUser(ctx context.Context, userID string) error
}
