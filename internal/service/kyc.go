package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-Sigroha/kyc/internal/domain"
	"github.com/Aman-Sigroha/kyc/internal/imaging"
	"github.com/Aman-Sigroha/kyc/internal/stage"
)

// ScoringConfig holds the knobs of the verdict scoring policy.
type ScoringConfig struct {
	// SimilarityThreshold is the cosine value at or above which the faces
	// count as verified.
	SimilarityThreshold float64
	// PendingFaceFloor and PendingOCRFloor separate approved from pending
	// for verified matches.
	PendingFaceFloor float64
	PendingOCRFloor  float64
}

// KYCService runs the full verification pipeline: detect both faces, fan
// out face matching and OCR in parallel, then apply the scoring policy.
type KYCService struct {
	registry *stage.Registry
	scoring  ScoringConfig
	logger   *slog.Logger
}

func NewKYCService(registry *stage.Registry, scoring ScoringConfig, logger *slog.Logger) *KYCService {
	return &KYCService{
		registry: registry,
		scoring:  scoring,
		logger:   logger,
	}
}

// Verify produces a verdict for an ID document and a selfie. Soft
// conditions (rejected, pending) are verdicts, not errors; only missing
// faces, unready stages and infrastructure failures surface as errors.
func (s *KYCService) Verify(ctx context.Context, idDoc, selfie *imaging.Image) (*domain.VerificationVerdict, error) {
	start := time.Now()

	detector, err := s.registry.Detector(ctx)
	if err != nil {
		return nil, domain.ErrNotReady.WithError(err)
	}
	matcher, err := s.registry.Matcher(ctx)
	if err != nil {
		return nil, domain.ErrNotReady.WithError(err)
	}
	ocr, err := s.registry.OCR(ctx)
	if err != nil {
		return nil, domain.ErrNotReady.WithError(err)
	}

	idFace, err := detector.Detect(ctx, idDoc)
	if err != nil {
		return nil, s.classify(ctx, fmt.Errorf("detect id face: %w", err))
	}
	if idFace == nil {
		return nil, domain.ErrNoFaceInID
	}

	selfieFace, err := detector.Detect(ctx, selfie)
	if err != nil {
		return nil, s.classify(ctx, fmt.Errorf("detect selfie face: %w", err))
	}
	if selfieFace == nil {
		return nil, domain.ErrNoFaceInSelfie
	}

	// Face matching and OCR are independent; run them in parallel and
	// surface the first error. Cancelling the sibling on failure is free
	// through the group context.
	var match stage.MatchResult
	var ocrData *domain.OCRData

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		idEmbedding, err := matcher.Embed(gctx, idDoc, idFace)
		if err != nil {
			return fmt.Errorf("embed id face: %w", err)
		}
		selfieEmbedding, err := matcher.Embed(gctx, selfie, selfieFace)
		if err != nil {
			return fmt.Errorf("embed selfie face: %w", err)
		}
		match, err = matcher.Compare(idEmbedding, selfieEmbedding)
		if err != nil {
			return fmt.Errorf("compare embeddings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ocrData, err = ocr.Extract(gctx, idDoc)
		if err != nil {
			return fmt.Errorf("extract document text: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, s.classify(ctx, err)
	}

	status, confidence := Score(match.Cosine, ocrData.Confidence, s.scoring)

	verdict := &domain.VerificationVerdict{
		VerificationStatus: status,
		ConfidenceScore:    confidence,
		FaceMatchScore:     clamp01(match.Cosine),
		OCRData:            ocrData,
		ProcessingTimeMs:   time.Since(start).Milliseconds(),
		Timestamp:          domain.Zulu(time.Now()),
		FaceVerificationDetails: domain.FaceVerificationDetails{
			Verified:      match.Verified,
			Confidence:    clamp01(match.Cosine),
			ThresholdUsed: match.Threshold,
			SimilarityMetrics: domain.SimilarityMetrics{
				CosineSimilarity:  match.Cosine,
				EuclideanDistance: match.Euclidean,
			},
			Message: matchMessage(match),
		},
	}

	s.logger.Info("kyc verification completed",
		slog.String("status", string(status)),
		slog.Float64("face_match_score", verdict.FaceMatchScore),
		slog.Int64("latency_ms", verdict.ProcessingTimeMs),
	)

	return verdict, nil
}

// ExtractDocument runs OCR alone, for the standalone OCR endpoint.
func (s *KYCService) ExtractDocument(ctx context.Context, doc *imaging.Image) (*domain.OCRData, error) {
	ocr, err := s.registry.OCR(ctx)
	if err != nil {
		return nil, domain.ErrNotReady.WithError(err)
	}
	data, err := ocr.Extract(ctx, doc)
	if err != nil {
		return nil, s.classify(ctx, fmt.Errorf("extract document text: %w", err))
	}
	return data, nil
}

// classify maps a pipeline failure onto the error taxonomy, giving
// deadline expiry precedence over whatever the cancelled stage reported.
func (s *KYCService) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout.WithError(err)
	}
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return domain.ErrBackendFailure.WithError(err)
}

// Score is the scoring policy: a pure function of the cosine similarity,
// the OCR confidence and the configured thresholds.
func Score(cosine, ocrConfidence float64, cfg ScoringConfig) (domain.VerificationStatus, float64) {
	verified := cosine >= cfg.SimilarityThreshold
	confidence := clamp01(0.6*cosine + 0.4*ocrConfidence)

	switch {
	case verified && (cosine >= cfg.PendingFaceFloor || ocrConfidence >= cfg.PendingOCRFloor):
		return domain.StatusApproved, confidence
	case verified:
		return domain.StatusPending, confidence
	default:
		return domain.StatusRejected, confidence
	}
}

func matchMessage(match stage.MatchResult) string {
	if match.Verified {
		return fmt.Sprintf("Faces match (%.1f%% similarity)", match.Cosine*100)
	}
	return fmt.Sprintf("Faces do not match (%.1f%% similarity, threshold: %.1f%%)", match.Cosine*100, match.Threshold*100)
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
