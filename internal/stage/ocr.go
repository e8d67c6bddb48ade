package stage

import (
	"context"
	"fmt"

	"github.com/Aman-Sigroha/kyc/internal/domain"
	"github.com/Aman-Sigroha/kyc/internal/imaging"
)

// DocumentOCR wraps a TextBackend and maps its free text into the
// structured document contract. Low confidence is never an error here:
// the stage returns its best effort and lets the scoring policy weigh it.
type DocumentOCR struct {
	backend TextBackend
}

func NewDocumentOCR(backend TextBackend) *DocumentOCR {
	return &DocumentOCR{backend: backend}
}

func (o *DocumentOCR) Extract(ctx context.Context, img *imaging.Image) (*domain.OCRData, error) {
	text, confidence, err := o.backend.RecognizeText(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	return &domain.OCRData{
		DocumentType:  ClassifyDocument(text),
		Confidence:    clamp01(confidence),
		ExtractedText: text,
		Fields:        ParseFields(text),
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var _ OCRExtractor = (*DocumentOCR)(nil)
