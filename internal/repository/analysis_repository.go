package repository

import (
	"context"

	"github.com/kxshrx/flynch/internal/domain"
)

// AnalysisRepository defines the interface for project analysis data access.
type AnalysisRepository interface {
	// Create inserts a new analysis row, normally in pending state.
	Create(ctx context.Context, analysis *domain.ProjectAnalysis) error

	// GetByID retrieves an analysis by ID.
	GetByID(ctx context.Context, id string) (*domain.ProjectAnalysis, error)

	// ListByUser retrieves a user's analyses, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.ProjectAnalysis, error)

	// Update persists result fields and status transitions.
	Update(ctx context.Context, analysis *domain.ProjectAnalysis) error

	// DeleteByUser removes all analyses for a user.
	DeleteByUser(ctx context.Context, userID string) error
}
