package domain

import (
	"time"
)

// LinkedInProfile holds the extracted content of an uploaded profile
// export. Each user keeps at most one; re-upload replaces it.
type LinkedInProfile struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name,omitempty"`
	Headline   string    `json:"headline,omitempty"`
	Location   string    `json:"location,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Sections   string    `json:"-"` // Raw extracted sections as JSON
	SourceFile string    `json:"source_file"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Validate validates the LinkedInProfile
func (p *LinkedInProfile) Validate() error {
	if p.UserID == "" {
		return NewValidationError("MISSING_USER_ID", "User ID is required", map[string]interface{}{
			"field": "user_id",
		})
	}
	if p.SourceFile == "" {
		return NewValidationError("MISSING_SOURCE_FILE", "Source file name is required", map[string]interface{}{
			"field": "source_file",
		})
	}
	return nil
}

// ExtractedProfile is what a profile extractor returns for an uploaded
// document before it is persisted.
type ExtractedProfile struct {
	Name     string `json:"name,omitempty"`
	Headline string `json:"headline,omitempty"`
	Location string `json:"location,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Sections string `json:"sections,omitempty"`
}
