package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/testutil"
)

type stubExtractor struct {
	profile *domain.ExtractedProfile
	err     error
}

func (s *stubExtractor) Extract(_ context.Context, _ string, r io.Reader) (*domain.ExtractedProfile, error) {
	_, _ = io.Copy(io.Discard, r)
	if s.err != nil {
		return nil, s.err
	}
	return s.profile, nil
}

func TestLinkedInService_Upload(t *testing.T) {
	profileRepo := testutil.NewMockLinkedInProfileRepository()
	extractor := &stubExtractor{profile: &domain.ExtractedProfile{
		Name:     "Test User",
		Headline: "Software Engineer",
		Location: "Chennai",
		Summary:  "Builds things.",
		Sections: `{"experience":[]}`,
	}}
	service := NewLinkedInService(profileRepo, extractor)

	profile, err := service.Upload(context.Background(), "user123", "exports/resume.pdf", 1024, strings.NewReader("%PDF-1.7 fixture"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if profile.ID == "" {
		t.Error("Expected a generated profile ID")
	}
	if profile.Name != "Test User" || profile.Headline != "Software Engineer" {
		t.Errorf("Expected the extracted fields, got %+v", profile)
	}
	if profile.SourceFile != "resume.pdf" {
		t.Errorf("Expected the base filename, got %q", profile.SourceFile)
	}
	if profile.UploadedAt.IsZero() {
		t.Error("Expected an upload time")
	}

	stored, err := profileRepo.GetByUser(context.Background(), "user123")
	if err != nil {
		t.Fatalf("Expected a stored profile: %v", err)
	}
	if stored.ID != profile.ID {
		t.Errorf("Expected the stored profile to match, got %s vs %s", stored.ID, profile.ID)
	}
}

func TestLinkedInService_Upload_ReplacesPrevious(t *testing.T) {
	profileRepo := testutil.NewMockLinkedInProfileRepository()
	extractor := &stubExtractor{profile: &domain.ExtractedProfile{Name: "First"}}
	service := NewLinkedInService(profileRepo, extractor)

	if _, err := service.Upload(context.Background(), "user123", "first.pdf", 10, strings.NewReader("%PDF-")); err != nil {
		t.Fatalf("First upload failed: %v", err)
	}

	extractor.profile = &domain.ExtractedProfile{Name: "Second"}
	second, err := service.Upload(context.Background(), "user123", "second.pdf", 10, strings.NewReader("%PDF-"))
	if err != nil {
		t.Fatalf("Second upload failed: %v", err)
	}

	stored, err := profileRepo.GetByUser(context.Background(), "user123")
	if err != nil {
		t.Fatalf("Expected a stored profile: %v", err)
	}
	if stored.Name != "Second" || stored.SourceFile != "second.pdf" {
		t.Errorf("Expected the second upload to replace the first, got %+v", stored)
	}
	if stored.ID != second.ID {
		t.Errorf("Expected the new profile ID after replace, got %s vs %s", stored.ID, second.ID)
	}
}

func TestLinkedInService_Upload_RejectsNonPDF(t *testing.T) {
	service := NewLinkedInService(testutil.NewMockLinkedInProfileRepository(), &stubExtractor{profile: &domain.ExtractedProfile{}})

	_, err := service.Upload(context.Background(), "user123", "resume.docx", 10, strings.NewReader("data"))
	if err == nil {
		t.Fatal("Expected a non-PDF filename to be rejected")
	}

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("Expected domain error, got %T", err)
	}
	if domainErr.Type != domain.ValidationError || domainErr.Code != "INVALID_FILE_TYPE" {
		t.Errorf("Expected INVALID_FILE_TYPE, got %s/%s", domainErr.Type, domainErr.Code)
	}

	// Extension matching ignores case
	if _, err := service.Upload(context.Background(), "user123", "RESUME.PDF", 10, strings.NewReader("%PDF-")); err != nil {
		t.Errorf("Expected an uppercase extension to pass: %v", err)
	}
}

func TestLinkedInService_Upload_RejectsOversize(t *testing.T) {
	service := NewLinkedInService(testutil.NewMockLinkedInProfileRepository(), &stubExtractor{profile: &domain.ExtractedProfile{}})

	_, err := service.Upload(context.Background(), "user123", "resume.pdf", maxProfileUploadBytes+1, strings.NewReader("%PDF-"))
	if err == nil {
		t.Fatal("Expected an oversize upload to be rejected")
	}

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("Expected domain error, got %T", err)
	}
	if domainErr.Code != "FILE_TOO_LARGE" {
		t.Errorf("Expected FILE_TOO_LARGE, got %s", domainErr.Code)
	}
}

func TestLinkedInService_Upload_InvalidPDFPassesThrough(t *testing.T) {
	// The real extractor rejects bad containers; the service must not
	// rewrap its validation error.
	service := NewLinkedInService(testutil.NewMockLinkedInProfileRepository(), NewBasicProfileExtractor())

	_, err := service.Upload(context.Background(), "user123", "resume.pdf", 20, strings.NewReader("MZ not a pdf at all"))
	if err == nil {
		t.Fatal("Expected a bad container to be rejected")
	}

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("Expected domain error, got %T", err)
	}
	if domainErr.Type != domain.ValidationError || domainErr.Code != "INVALID_PDF" {
		t.Errorf("Expected INVALID_PDF validation, got %s/%s", domainErr.Type, domainErr.Code)
	}
}

func TestLinkedInService_Upload_ExtractorFailure(t *testing.T) {
	service := NewLinkedInService(
		testutil.NewMockLinkedInProfileRepository(),
		&stubExtractor{err: errors.New("parser crashed")},
	)

	_, err := service.Upload(context.Background(), "user123", "resume.pdf", 10, strings.NewReader("%PDF-"))
	if err == nil {
		t.Fatal("Expected an extractor failure to surface")
	}

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("Expected domain error, got %T", err)
	}
	if domainErr.Type != domain.ExternalServiceError || domainErr.Code != "EXTRACTION_FAILED" {
		t.Errorf("Expected EXTRACTION_FAILED, got %s/%s", domainErr.Type, domainErr.Code)
	}
}

func TestLinkedInService_Get(t *testing.T) {
	profileRepo := testutil.NewMockLinkedInProfileRepository()
	service := NewLinkedInService(profileRepo, NewBasicProfileExtractor())

	_, err := service.Get(context.Background(), "user123")
	if err == nil {
		t.Fatal("Expected a missing profile to be reported")
	}

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("Expected domain error, got %T", err)
	}
	if domainErr.Type != domain.NotFoundError || domainErr.Code != "PROFILE_NOT_FOUND" {
		t.Errorf("Expected PROFILE_NOT_FOUND, got %s/%s", domainErr.Type, domainErr.Code)
	}

	uploaded, err := service.Upload(context.Background(), "user123", "resume.pdf", 10, strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	got, err := service.Get(context.Background(), "user123")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != uploaded.ID {
		t.Errorf("Expected the uploaded profile, got %s vs %s", got.ID, uploaded.ID)
	}
}

func TestBasicProfileExtractor(t *testing.T) {
	extractor := NewBasicProfileExtractor()

	extracted, err := extractor.Extract(context.Background(), "resume.pdf", strings.NewReader("%PDF-1.7\nsome objects"))
	if err != nil {
		t.Fatalf("Extract failed on a valid container: %v", err)
	}
	if extracted.Sections != "{}" {
		t.Errorf("Expected empty sections, got %q", extracted.Sections)
	}

	if _, err := extractor.Extract(context.Background(), "resume.pdf", strings.NewReader("PK\x03\x04 zip data")); err == nil {
		t.Error("Expected a non-PDF container to be rejected")
	}
	if _, err := extractor.Extract(context.Background(), "resume.pdf", strings.NewReader("%P")); err == nil {
		t.Error("Expected a truncated header to be rejected")
	}
}
