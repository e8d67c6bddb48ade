package stage

import (
	"context"
	"fmt"
	"sync"

	"github.com/Aman-Sigroha/kyc/internal/imaging"
)

// defaultDetectorConfidence is the minimum confidence for a box to count
// as a face.
const defaultDetectorConfidence = 0.5

// FaceDetector wraps a DetectionBackend and returns the primary face of an
// image. Some detection models cache their input-size parameter and
// misbehave when consecutive calls carry different dimensions; the stage
// reconfigures that parameter under a short critical section instead of
// rebuilding the detector.
type FaceDetector struct {
	backend   DetectionBackend
	threshold float64

	mu    sync.Mutex
	lastW int
	lastH int
}

func NewFaceDetector(backend DetectionBackend, threshold float64) *FaceDetector {
	if threshold <= 0 {
		threshold = defaultDetectorConfidence
	}
	return &FaceDetector{backend: backend, threshold: threshold}
}

// Detect returns the highest-confidence face above the threshold, or nil
// when the image contains none.
func (d *FaceDetector) Detect(ctx context.Context, img *imaging.Image) (*FaceBox, error) {
	// Short critical section: only the size-set, never the inference.
	d.mu.Lock()
	if img.Width != d.lastW || img.Height != d.lastH {
		d.backend.SetInputSize(img.Width, img.Height)
		d.lastW, d.lastH = img.Width, img.Height
	}
	d.mu.Unlock()

	boxes, err := d.backend.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	var best *FaceBox
	for i := range boxes {
		if boxes[i].Confidence < d.threshold {
			continue
		}
		if best == nil || boxes[i].Confidence > best.Confidence {
			best = &boxes[i]
		}
	}
	if best == nil {
		return nil, nil
	}

	out := *best
	return &out, nil
}

var _ Detector = (*FaceDetector)(nil)
