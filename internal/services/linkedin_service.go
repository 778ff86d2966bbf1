package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/repository"
)

// maxProfileUploadBytes caps uploaded profile exports.
const maxProfileUploadBytes = 10 << 20

// LinkedInService stores extracted profile exports per user.
type LinkedInService interface {
	// Upload extracts and stores a profile export, replacing any
	// previous one for the user.
	Upload(ctx context.Context, userID, filename string, size int64, r io.Reader) (*domain.LinkedInProfile, error)

	// Get returns the user's stored profile.
	Get(ctx context.Context, userID string) (*domain.LinkedInProfile, error)
}

// linkedInService implements LinkedInService.
type linkedInService struct {
	profileRepo repository.LinkedInProfileRepository
	extractor   ProfileExtractor
}

// NewLinkedInService creates a new LinkedIn profile service.
func NewLinkedInService(profileRepo repository.LinkedInProfileRepository, extractor ProfileExtractor) LinkedInService {
	return &linkedInService{
		profileRepo: profileRepo,
		extractor:   extractor,
	}
}

// Upload extracts and stores a profile export.
func (s *linkedInService) Upload(
	ctx context.Context,
	userID, filename string,
	size int64,
	r io.Reader,
) (*domain.LinkedInProfile, error) {
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return nil, domain.NewValidationError("INVALID_FILE_TYPE", "Only PDF files are accepted", map[string]interface{}{
			"filename": filename,
		})
	}
	if size > maxProfileUploadBytes {
		return nil, domain.NewValidationError("FILE_TOO_LARGE", "File exceeds the upload size limit", map[string]interface{}{
			"max_bytes": maxProfileUploadBytes,
		})
	}

	extracted, err := s.extractor.Extract(ctx, filename, io.LimitReader(r, maxProfileUploadBytes))
	if err != nil {
		var domainErr *domain.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, domain.NewExternalServiceError("EXTRACTION_FAILED", "Failed to extract profile content", err)
	}

	profile := &domain.LinkedInProfile{
		ID:         uuid.New().String(),
		UserID:     userID,
		Name:       extracted.Name,
		Headline:   extracted.Headline,
		Location:   extracted.Location,
		Summary:    extracted.Summary,
		Sections:   extracted.Sections,
		SourceFile: filepath.Base(filename),
		UploadedAt: time.Now().UTC(),
	}

	if err := s.profileRepo.Replace(ctx, profile); err != nil {
		return nil, domain.NewInternalError("PROFILE_STORE_FAILED", "Failed to store profile", err)
	}

	return profile, nil
}

// Get returns the user's stored profile.
func (s *linkedInService) Get(ctx context.Context, userID string) (*domain.LinkedInProfile, error) {
	profile, err := s.profileRepo.GetByUser(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NewNotFoundError("PROFILE_NOT_FOUND", "No profile uploaded")
		}
		return nil, domain.NewInternalError("PROFILE_QUERY_FAILED", "Failed to query profile", err)
	}
	return profile, nil
}
