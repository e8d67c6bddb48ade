package stage

import (
	"context"

	"github.com/Aman-Sigroha/kyc/internal/imaging"
)

// DetectionBackend is the raw face-detection model behind the Detector
// stage. Implementations that cache an input-size parameter must apply
// SetInputSize before the next Detect call; the stage serializes the
// size-set itself.
type DetectionBackend interface {
	Name() string
	SetInputSize(width, height int)
	Detect(ctx context.Context, img *imaging.Image) ([]FaceBox, error)
}

// EmbeddingBackend turns a face crop into a feature vector.
type EmbeddingBackend interface {
	Name() string
	Embed(ctx context.Context, img *imaging.Image, box *FaceBox) ([]float64, error)
}

// TextBackend recognizes free text in a document image and reports its own
// confidence in [0,1].
type TextBackend interface {
	Name() string
	RecognizeText(ctx context.Context, img *imaging.Image) (text string, confidence float64, err error)
}

// FramePose is what the pose backend reads off a single frame.
type FramePose struct {
	FaceDetected   bool
	EyeAspectRatio float64
	// Yaw is the left/right head rotation in degrees; negative is the
	// subject's left.
	Yaw float64
}

// PoseBackend analyzes a single frame for eye openness and head rotation.
type PoseBackend interface {
	Name() string
	Analyze(ctx context.Context, img *imaging.Image) (FramePose, error)
}
