package domain

import (
	"time"
)

// OAuthState is a single-use anti-forgery token binding an OAuth
// callback to the authenticated user who initiated the flow. It is
// consumed exactly once; a second callback with the same value fails.
type OAuthState struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Validate validates the OAuthState
func (s *OAuthState) Validate() error {
	if s.State == "" {
		return NewValidationError("MISSING_STATE", "State value is required", map[string]interface{}{
			"field": "state",
		})
	}
	if s.UserID == "" {
		return NewValidationError("MISSING_USER_ID", "User ID is required", map[string]interface{}{
			"field": "user_id",
		})
	}
	return nil
}

// IsExpired checks if the state has passed its TTL
func (s *OAuthState) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
