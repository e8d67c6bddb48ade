// Package stage holds the pluggable inference stages the orchestrators run:
// face detection, face matching, OCR extraction and liveness evaluation.
// Stages are the only places where ML backends are invoked; everything else
// in the service works on their typed results.
package stage

import (
	"context"
	"errors"

	"github.com/Aman-Sigroha/kyc/internal/domain"
	"github.com/Aman-Sigroha/kyc/internal/imaging"
)

var (
	// ErrEmbeddingLength means two embeddings of different lengths, or two
	// empty embeddings, were compared.
	ErrEmbeddingLength = errors.New("embeddings have different lengths")
	// ErrNoFaceInCrop means the embedding backend found no face in the crop.
	ErrNoFaceInCrop = errors.New("no face in crop")
)

// FaceBox is a face bounding rectangle in image pixels plus the detector's
// confidence in [0,1].
type FaceBox struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// Embedding is a fixed-length face feature vector. Opaque to the
// orchestrator except for length equality and cosine comparability.
type Embedding []float64

// MatchResult is the outcome of comparing two embeddings.
type MatchResult struct {
	Cosine    float64
	Euclidean float64
	Verified  bool
	Threshold float64
}

// LivenessSummary is what the liveness evaluator observed over a frame
// sequence.
type LivenessSummary struct {
	Blinks             int
	Orientations       []domain.Orientation
	FaceDetectionRatio float64
}

// Detector locates the primary face in an image. A nil box with a nil
// error means no face above the confidence threshold.
type Detector interface {
	Detect(ctx context.Context, img *imaging.Image) (*FaceBox, error)
}

// Matcher produces and compares face embeddings.
type Matcher interface {
	Embed(ctx context.Context, img *imaging.Image, box *FaceBox) (Embedding, error)
	Compare(a, b Embedding) (MatchResult, error)
}

// OCRExtractor pulls free text and structured fields from a document image.
type OCRExtractor interface {
	Extract(ctx context.Context, img *imaging.Image) (*domain.OCRData, error)
}

// LivenessEvaluator consumes an ordered frame sequence and reports blink
// and head-orientation evidence.
type LivenessEvaluator interface {
	Evaluate(ctx context.Context, frames *imaging.FrameSeq, initialBlinks int) (*LivenessSummary, error)
}
