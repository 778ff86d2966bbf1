// Package repository provides data access interfaces following SOLID principles.
package repository

import (
	"context"

	"github.com/kxshrx/flynch/internal/domain"
)

// OAuthStateRepository defines the interface for OAuth state data access.
// States are short-lived and strictly single-use.
type OAuthStateRepository interface {
	// Create stores a new state, superseding any pending state for the
	// same user.
	Create(ctx context.Context, state *domain.OAuthState) error

	// Consume atomically removes and returns the state with the given
	// value. A value can be consumed at most once; unknown or already
	// consumed values return ErrNotFound. Expiry is the caller's check.
	Consume(ctx context.Context, state string) (*domain.OAuthState, error)

	// DeleteExpired removes all expired states.
	DeleteExpired(ctx context.Context) error
}
