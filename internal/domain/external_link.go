// Package domain provides core business entities following SOLID principles.
package domain

import (
	"time"
)

// Provider identifies an external account provider.
type Provider string

const (
	// ProviderGithub is the GitHub OAuth provider.
	ProviderGithub Provider = "github"
)

// ExternalLink associates a local account with one external provider
// identity. At most one link exists per (user, provider) pair.
type ExternalLink struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Provider      Provider  `json:"provider"`
	ExternalID    int64     `json:"external_id"`
	ExternalLogin string    `json:"external_login"`
	AccessToken   string    `json:"-"` // Never serialize the token
	Scopes        string    `json:"scopes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate validates the ExternalLink
func (l *ExternalLink) Validate() error {
	if l.UserID == "" {
		return NewValidationError("MISSING_USER_ID", "User ID is required", map[string]interface{}{
			"field": "user_id",
		})
	}
	if l.Provider == "" {
		return NewValidationError("MISSING_PROVIDER", "Provider is required", map[string]interface{}{
			"field": "provider",
		})
	}
	if l.AccessToken == "" {
		return NewValidationError("MISSING_ACCESS_TOKEN", "Access token is required", map[string]interface{}{
			"field": "access_token",
		})
	}
	return nil
}

// ConnectionStatus reports whether a provider link exists for a user.
type ConnectionStatus struct {
	Connected       bool       `json:"connected"`
	Provider        Provider   `json:"provider"`
	ExternalLogin   string     `json:"external_login,omitempty"`
	RepositoryCount int        `json:"repository_count"`
	LastSyncedAt    *time.Time `json:"last_synced_at,omitempty"`
}
