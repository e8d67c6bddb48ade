package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Aman-Sigroha/kyc/internal/challenge"
	"github.com/Aman-Sigroha/kyc/internal/domain"
	"github.com/Aman-Sigroha/kyc/internal/imaging"
	"github.com/Aman-Sigroha/kyc/internal/stage"
)

// LivenessConfig tunes the liveness verification rules.
type LivenessConfig struct {
	// MinFrames is the fewest frames a verification accepts.
	MinFrames int
	// FaceRatioFloor is the minimum share of frames with a detected face.
	FaceRatioFloor float64
}

// LivenessService verifies frame batches against issued challenges.
type LivenessService struct {
	registry *stage.Registry
	store    *challenge.Store
	cfg      LivenessConfig
	logger   *slog.Logger
}

func NewLivenessService(registry *stage.Registry, store *challenge.Store, cfg LivenessConfig, logger *slog.Logger) *LivenessService {
	return &LivenessService{
		registry: registry,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// IssueChallenge creates a fresh signed challenge.
func (s *LivenessService) IssueChallenge() (domain.Challenge, error) {
	ch, err := s.store.Issue()
	if err != nil {
		return domain.Challenge{}, domain.ErrInternal.WithError(err)
	}
	return ch, nil
}

// Detect runs the liveness evaluator over a frame batch without any
// challenge semantics.
func (s *LivenessService) Detect(ctx context.Context, frames *imaging.FrameSeq, initialBlinks int) (*stage.LivenessSummary, error) {
	evaluator, err := s.registry.Liveness(ctx)
	if err != nil {
		return nil, domain.ErrNotReady.WithError(err)
	}

	summary, err := evaluator.Evaluate(ctx, frames, initialBlinks)
	if err != nil {
		return nil, s.classifyLiveness(ctx, err)
	}
	return summary, nil
}

// VerifyChallenge checks a frame batch against a previously issued
// challenge. Challenge-level outcomes (expired, not found, failed
// predicates) are verdicts; only infrastructure problems are errors.
func (s *LivenessService) VerifyChallenge(ctx context.Context, challengeID string, frames *imaging.FrameSeq) (*domain.LivenessVerdict, error) {
	start := time.Now()

	ch, ok := s.store.Lookup(challengeID)
	if !ok {
		return s.verdict(challengeID, start, domain.LivenessInvalid,
			"Challenge not found or expired", nil), nil
	}

	if frames.Len() < s.cfg.MinFrames {
		return s.verdict(challengeID, start, domain.LivenessFail,
			fmt.Sprintf("not enough frames: got %d, need at least %d", frames.Len(), s.cfg.MinFrames), nil), nil
	}

	evaluator, err := s.registry.Liveness(ctx)
	if err != nil {
		return nil, domain.ErrNotReady.WithError(err)
	}

	summary, err := evaluator.Evaluate(ctx, frames, 0)
	if err != nil {
		return nil, s.classifyLiveness(ctx, err)
	}

	if summary.FaceDetectionRatio < s.cfg.FaceRatioFloor {
		return s.verdict(challengeID, start, domain.LivenessFail,
			"face not consistently visible across frames", summary), nil
	}

	var completed, failed []string
	for _, p := range ch.Predicates {
		if predicateSatisfied(p, summary) {
			completed = append(completed, string(p))
		} else {
			failed = append(failed, string(p))
		}
	}

	if len(failed) > 0 {
		msg := fmt.Sprintf("challenges completed: %s; challenges failed: %s",
			joinOrNone(completed), joinOrNone(failed))
		return s.verdict(challengeID, start, domain.LivenessFail, msg, summary), nil
	}

	// All predicates satisfied: retire the challenge. Losing the consume
	// race to a duplicate verify downgrades the pass.
	switch result := s.store.Consume(ch.ID, ch.Signature); result {
	case challenge.ConsumeOK:
		msg := fmt.Sprintf("All challenges completed: %s", strings.Join(completed, ", "))
		return s.verdict(challengeID, start, domain.LivenessPass, msg, summary), nil
	case challenge.ConsumeExpired:
		return s.verdict(challengeID, start, domain.LivenessExpired,
			"Challenge expired before verification completed", summary), nil
	default:
		s.logger.Warn("pass downgraded: challenge could not be consumed",
			slog.String("challenge_id", ch.ID),
			slog.String("consume_result", result.String()),
		)
		return s.verdict(challengeID, start, domain.LivenessInvalid,
			"Challenge already used or no longer valid", summary), nil
	}
}

func predicateSatisfied(p domain.Predicate, summary *stage.LivenessSummary) bool {
	switch p {
	case domain.PredicateBlink:
		return summary.Blinks >= 1
	case domain.PredicateTurnLeft:
		return hasOrientation(summary.Orientations, domain.OrientationLeft)
	case domain.PredicateTurnRight:
		return hasOrientation(summary.Orientations, domain.OrientationRight)
	default:
		return false
	}
}

func hasOrientation(orientations []domain.Orientation, want domain.Orientation) bool {
	for _, o := range orientations {
		if o == want {
			return true
		}
	}
	return false
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func (s *LivenessService) verdict(challengeID string, start time.Time, status domain.LivenessStatus, message string, summary *stage.LivenessSummary) *domain.LivenessVerdict {
	v := &domain.LivenessVerdict{
		ChallengeID:      challengeID,
		Status:           status,
		Message:          message,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Timestamp:        domain.Zulu(time.Now()),
	}
	if summary != nil {
		v.DetectionResults = DetectionResults(summary)
	} else {
		v.DetectionResults.Orientations = []domain.Orientation{}
	}
	return v
}

// DetectionResults flattens an evaluator summary into the wire shape.
func DetectionResults(summary *stage.LivenessSummary) domain.DetectionResults {
	results := domain.DetectionResults{
		Blinks:       summary.Blinks,
		Orientations: summary.Orientations,
		FaceDetected: summary.FaceDetectionRatio > 0,
	}
	if results.Orientations == nil {
		results.Orientations = []domain.Orientation{}
	}
	for _, o := range summary.Orientations {
		if o != domain.OrientationNone {
			results.Orientation = o
		}
	}
	return results
}

func (s *LivenessService) classifyLiveness(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout.WithError(err)
	}
	if errors.Is(err, imaging.ErrUndecodable) || errors.Is(err, imaging.ErrEmpty) || errors.Is(err, imaging.ErrTooLarge) {
		return domain.ErrBadInput.WithError(err)
	}
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return domain.ErrBackendFailure.WithError(err)
}
