package domain

import (
	"time"
)

// Repository is a per-user snapshot of one of the user's GitHub
// repositories, refreshed by sync and read by listings and analyses.
type Repository struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	GithubID    int64      `json:"github_id"`
	Name        string     `json:"name"`
	FullName    string     `json:"full_name"`
	HTMLURL     string     `json:"html_url"`
	Description string     `json:"description,omitempty"`
	Language    string     `json:"language,omitempty"`
	Languages   []string   `json:"languages,omitempty"`
	Stars       int        `json:"stars"`
	Forks       int        `json:"forks"`
	HasReadme   bool       `json:"has_readme"`
	Readme      string     `json:"-"` // Raw README content, analysis input only
	PushedAt    *time.Time `json:"pushed_at,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
}

// Validate validates the Repository
func (r *Repository) Validate() error {
	if r.UserID == "" {
		return NewValidationError("MISSING_USER_ID", "User ID is required", map[string]interface{}{
			"field": "user_id",
		})
	}
	if r.Name == "" {
		return NewValidationError("MISSING_REPO_NAME", "Repository name is required", map[string]interface{}{
			"field": "name",
		})
	}
	return nil
}

// SyncResult summarizes a repository sync run.
type SyncResult struct {
	Processed int `json:"processed"`
	Pruned    int `json:"pruned"`
}
