package domain

import (
	"time"
)

// AnalysisStatus represents the lifecycle state of a project analysis.
type AnalysisStatus string

const (
	// AnalysisPending means the analysis is queued or running.
	AnalysisPending AnalysisStatus = "pending"
	// AnalysisCompleted means the analysis finished successfully.
	AnalysisCompleted AnalysisStatus = "completed"
	// AnalysisFailed means the analysis could not be produced.
	AnalysisFailed AnalysisStatus = "failed"
)

// ProjectAnalysis is an AI-generated summary of one repository,
// owned by the requesting user. Status moves pending to completed or
// pending to failed, never backwards.
type ProjectAnalysis struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	RepoName     string         `json:"repo_name"`
	Title        string         `json:"title,omitempty"`
	Summary      string         `json:"summary,omitempty"`
	TechStack    []string       `json:"tech_stack,omitempty"`
	Skills       []string       `json:"skills,omitempty"`
	Domain       string         `json:"domain,omitempty"`
	Impact       string         `json:"impact,omitempty"`
	Status       AnalysisStatus `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Validate validates the ProjectAnalysis
func (a *ProjectAnalysis) Validate() error {
	if a.UserID == "" {
		return NewValidationError("MISSING_USER_ID", "User ID is required", map[string]interface{}{
			"field": "user_id",
		})
	}
	if a.RepoName == "" {
		return NewValidationError("MISSING_REPO_NAME", "Repository name is required", map[string]interface{}{
			"field": "repo_name",
		})
	}
	return nil
}

// AnalysisRequest selects repositories to analyze.
type AnalysisRequest struct {
	Repos []string `json:"repos" binding:"required,min=1"`
}

// AnalysisResult is the summarizer output for one repository.
type AnalysisResult struct {
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	TechStack []string `json:"tech_stack,omitempty"`
	Skills    []string `json:"skills,omitempty"`
	Domain    string   `json:"domain,omitempty"`
	Impact    string   `json:"impact,omitempty"`
}

// AnalysisEvent is a progress notification delivered to the owning
// user's event subscribers while the worker processes a request.
type AnalysisEvent struct {
	UserID     string         `json:"-"`
	AnalysisID string         `json:"analysis_id"`
	RepoName   string         `json:"repo_name"`
	Status     AnalysisStatus `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
}
