package stage

import (
	"context"
	"fmt"

	"github.com/Aman-Sigroha/kyc/internal/domain"
	"github.com/Aman-Sigroha/kyc/internal/imaging"
)

// Eye-aspect-ratio hysteresis bounds. Eyes count as closed below the lower
// bound and reopen only above the upper one, so jitter around a single
// threshold is not counted as extra blinks.
const (
	earCloseThreshold = 0.21
	earOpenThreshold  = 0.26

	// yawTurnDegrees is how far the head must rotate before a frame counts
	// as a turn.
	yawTurnDegrees = 15.0
)

// BlinkLiveness evaluates a frame sequence with a PoseBackend. State is
// kept only within a single Evaluate call: the eye hysteresis spans
// consecutive frames, orientations are computed per frame.
type BlinkLiveness struct {
	backend PoseBackend
}

func NewBlinkLiveness(backend PoseBackend) *BlinkLiveness {
	return &BlinkLiveness{backend: backend}
}

func (l *BlinkLiveness) Evaluate(ctx context.Context, frames *imaging.FrameSeq, initialBlinks int) (*LivenessSummary, error) {
	summary := &LivenessSummary{
		Blinks:       initialBlinks,
		Orientations: make([]domain.Orientation, 0, frames.Len()),
	}

	total := 0
	detected := 0
	eyesClosed := false

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := frames.Next()
		if err != nil {
			return nil, fmt.Errorf("decode frame %d: %w", total, err)
		}
		if img == nil {
			break
		}
		total++

		pose, err := l.backend.Analyze(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("analyze frame %d: %w", total-1, err)
		}

		if !pose.FaceDetected {
			summary.Orientations = append(summary.Orientations, domain.OrientationNone)
			continue
		}
		detected++

		// A blink is a closed-to-open transition.
		if eyesClosed {
			if pose.EyeAspectRatio > earOpenThreshold {
				summary.Blinks++
				eyesClosed = false
			}
		} else if pose.EyeAspectRatio < earCloseThreshold {
			eyesClosed = true
		}

		switch {
		case pose.Yaw <= -yawTurnDegrees:
			summary.Orientations = append(summary.Orientations, domain.OrientationLeft)
		case pose.Yaw >= yawTurnDegrees:
			summary.Orientations = append(summary.Orientations, domain.OrientationRight)
		default:
			summary.Orientations = append(summary.Orientations, domain.OrientationNone)
		}
	}

	if total > 0 {
		summary.FaceDetectionRatio = float64(detected) / float64(total)
	}
	return summary, nil
}

var _ LivenessEvaluator = (*BlinkLiveness)(nil)
