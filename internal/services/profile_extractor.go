package services

import (
	"bytes"
	"context"
	"io"

	"github.com/kxshrx/flynch/internal/domain"
)

// ProfileExtractor turns an uploaded profile export into structured
// fields. Extraction quality is the collaborator's concern; the core
// persists whatever it yields.
type ProfileExtractor interface {
	Extract(ctx context.Context, filename string, r io.Reader) (*domain.ExtractedProfile, error)
}

// basicProfileExtractor validates the document container and returns an
// empty extraction. It stands in wherever no richer extractor is
// configured.
type basicProfileExtractor struct{}

// NewBasicProfileExtractor creates the default profile extractor.
func NewBasicProfileExtractor() ProfileExtractor {
	return &basicProfileExtractor{}
}

var pdfMagic = []byte("%PDF-")

// Extract checks the PDF magic bytes and returns an empty profile.
func (e *basicProfileExtractor) Extract(_ context.Context, _ string, r io.Reader) (*domain.ExtractedProfile, error) {
	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, domain.NewValidationError("INVALID_PDF", "File is not a valid PDF document", nil)
	}
	if !bytes.Equal(header, pdfMagic) {
		return nil, domain.NewValidationError("INVALID_PDF", "File is not a valid PDF document", nil)
	}

	// Drain the rest so the upload stream is fully consumed
	_, _ = io.Copy(io.Discard, r)

	return &domain.ExtractedProfile{Sections: "{}"}, nil
}
