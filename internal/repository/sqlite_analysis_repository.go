package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kxshrx/flynch/internal/domain"

	"github.com/google/uuid"
	"github.com/pocketbase/dbx"
)

// sqliteAnalysisRepository implements AnalysisRepository on SQLite via dbx.
type sqliteAnalysisRepository struct {
	db *dbx.DB
}

// NewSQLiteAnalysisRepository creates a new SQLite analysis repository.
func NewSQLiteAnalysisRepository(db *dbx.DB) AnalysisRepository {
	return &sqliteAnalysisRepository{db: db}
}

type analysisRow struct {
	ID           string `db:"id"`
	UserID       string `db:"user_id"`
	RepoName     string `db:"repo_name"`
	Title        string `db:"title"`
	Summary      string `db:"summary"`
	TechStack    string `db:"tech_stack"`
	Skills       string `db:"skills"`
	Domain       string `db:"domain"`
	Impact       string `db:"impact"`
	Status       string `db:"status"`
	ErrorMessage string `db:"error_message"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

// Create inserts a new analysis row.
func (r *sqliteAnalysisRepository) Create(ctx context.Context, analysis *domain.ProjectAnalysis) error {
	if err := analysis.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	if analysis.ID == "" {
		analysis.ID = uuid.NewString()
	}
	if analysis.Status == "" {
		analysis.Status = domain.AnalysisPending
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = now
	}
	analysis.UpdatedAt = now

	params, err := analysisParams(analysis)
	if err != nil {
		return err
	}

	if _, err := r.db.Insert(tableProjectAnalyses, params).WithContext(ctx).Execute(); err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	return nil
}

// GetByID retrieves an analysis by ID.
func (r *sqliteAnalysisRepository) GetByID(ctx context.Context, id string) (*domain.ProjectAnalysis, error) {
	if id == "" {
		return nil, fmt.Errorf("analysis ID cannot be empty")
	}

	var row analysisRow
	err := r.db.Select().
		From(tableProjectAnalyses).
		Where(dbx.HashExp{"id": id}).
		WithContext(ctx).
		One(&row)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query analysis: %w", err)
	}

	return rowToAnalysis(&row), nil
}

// ListByUser retrieves a user's analyses, newest first.
func (r *sqliteAnalysisRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.ProjectAnalysis, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}

	query := r.db.Select().
		From(tableProjectAnalyses).
		Where(dbx.HashExp{"user_id": userID}).
		OrderBy("created_at DESC")
	if limit > 0 {
		query.Limit(int64(limit))
	}

	var rows []analysisRow
	if err := query.WithContext(ctx).All(&rows); err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	analyses := make([]*domain.ProjectAnalysis, len(rows))
	for i := range rows {
		analyses[i] = rowToAnalysis(&rows[i])
	}
	return analyses, nil
}

// Update persists result fields and status transitions.
func (r *sqliteAnalysisRepository) Update(ctx context.Context, analysis *domain.ProjectAnalysis) error {
	if analysis.ID == "" {
		return fmt.Errorf("analysis ID cannot be empty for update")
	}

	analysis.UpdatedAt = time.Now().UTC()

	params, err := analysisParams(analysis)
	if err != nil {
		return err
	}
	delete(params, "id")
	delete(params, "user_id")
	delete(params, "created_at")

	result, err := r.db.Update(tableProjectAnalyses, params, dbx.HashExp{"id": analysis.ID}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("failed to update analysis: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("analysis %s: %w", analysis.ID, ErrNotFound)
	}

	return nil
}

// DeleteByUser removes all analyses for a user.
func (r *sqliteAnalysisRepository) DeleteByUser(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}

	if _, err := r.db.Delete(tableProjectAnalyses, dbx.HashExp{"user_id": userID}).WithContext(ctx).Execute(); err != nil {
		return fmt.Errorf("failed to delete analyses: %w", err)
	}
	return nil
}

func analysisParams(analysis *domain.ProjectAnalysis) (dbx.Params, error) {
	techStack, err := json.Marshal(analysis.TechStack)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tech stack: %w", err)
	}
	skills, err := json.Marshal(analysis.Skills)
	if err != nil {
		return nil, fmt.Errorf("failed to encode skills: %w", err)
	}

	return dbx.Params{
		"id":            analysis.ID,
		"user_id":       analysis.UserID,
		"repo_name":     analysis.RepoName,
		"title":         analysis.Title,
		"summary":       analysis.Summary,
		"tech_stack":    string(techStack),
		"skills":        string(skills),
		"domain":        analysis.Domain,
		"impact":        analysis.Impact,
		"status":        string(analysis.Status),
		"error_message": analysis.ErrorMessage,
		"created_at":    analysis.CreatedAt.Unix(),
		"updated_at":    analysis.UpdatedAt.Unix(),
	}, nil
}

// rowToAnalysis converts a database row to a domain.ProjectAnalysis.
func rowToAnalysis(row *analysisRow) *domain.ProjectAnalysis {
	analysis := &domain.ProjectAnalysis{
		ID:           row.ID,
		UserID:       row.UserID,
		RepoName:     row.RepoName,
		Title:        row.Title,
		Summary:      row.Summary,
		Domain:       row.Domain,
		Impact:       row.Impact,
		Status:       domain.AnalysisStatus(row.Status),
		ErrorMessage: row.ErrorMessage,
		CreatedAt:    time.Unix(row.CreatedAt, 0).UTC(),
		UpdatedAt:    time.Unix(row.UpdatedAt, 0).UTC(),
	}
	if row.TechStack != "" {
		_ = json.Unmarshal([]byte(row.TechStack), &analysis.TechStack)
	}
	if row.Skills != "" {
		_ = json.Unmarshal([]byte(row.Skills), &analysis.Skills)
	}
	return analysis
}
