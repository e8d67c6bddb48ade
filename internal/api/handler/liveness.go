package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Aman-Sigroha/kyc/internal/domain"
	"github.com/Aman-Sigroha/kyc/internal/imaging"
	"github.com/Aman-Sigroha/kyc/internal/service"
)

// LivenessHandler serves challenge issuance and liveness verification.
type LivenessHandler struct {
	service        *service.LivenessService
	maxUploadBytes int64
	timeout        time.Duration
	logger         *slog.Logger
}

func NewLivenessHandler(svc *service.LivenessService, maxUploadBytes int64, timeout time.Duration, logger *slog.Logger) *LivenessHandler {
	return &LivenessHandler{
		service:        svc,
		maxUploadBytes: maxUploadBytes,
		timeout:        timeout,
		logger:         logger,
	}
}

// ChallengeResponse is the issued-challenge wire shape.
type ChallengeResponse struct {
	ChallengeID    string   `json:"challenge_id"`
	MultiChallenge bool     `json:"multi_challenge"`
	ChallengeTypes []string `json:"challenge_types"`
	Questions      []string `json:"questions"`
	Instructions   []string `json:"instructions"`
	Timestamp      int64    `json:"timestamp"`
	ExpiresAt      int64    `json:"expires_at"`
	Nonce          string   `json:"nonce"`
	Signature      string   `json:"signature"`
}

// VerifyRequest is the liveness verification body.
type VerifyRequest struct {
	ChallengeID string   `json:"challenge_id"`
	Frames      []string `json:"frames"`
}

// DetectRequest is the raw detection body.
type DetectRequest struct {
	Frames            []string `json:"frames"`
	InitialBlinkCount int      `json:"initial_blink_count"`
}

// DetectResponse is the raw detection summary.
type DetectResponse struct {
	DetectionResults domain.DetectionResults `json:"detection_results"`
	FramesProcessed  int                     `json:"frames_processed"`
	ProcessingTimeMs int64                   `json:"processing_time_ms"`
	Timestamp        string                  `json:"timestamp"`
}

// Challenge GET /api/v1/liveness/challenge - issue a signed challenge.
func (h *LivenessHandler) Challenge(c *fiber.Ctx) error {
	ch, err := h.service.IssueChallenge()
	if err != nil {
		return err
	}

	types := make([]string, 0, len(ch.Predicates))
	questions := make([]string, 0, len(ch.Predicates))
	instructions := make([]string, 0, len(ch.Predicates))
	for _, p := range ch.Predicates {
		types = append(types, string(p))
		questions = append(questions, p.Question())
		instructions = append(instructions, p.Instruction())
	}

	return c.JSON(ChallengeResponse{
		ChallengeID:    ch.ID,
		MultiChallenge: len(ch.Predicates) > 1,
		ChallengeTypes: types,
		Questions:      questions,
		Instructions:   instructions,
		Timestamp:      ch.IssuedAt.Unix(),
		ExpiresAt:      ch.ExpiresAt.Unix(),
		Nonce:          ch.Nonce,
		Signature:      ch.Signature,
	})
}

// Verify POST /api/v1/liveness/verify - verify frames against a
// challenge. Challenge-level outcomes (expired, invalid, failed) are 200
// verdicts; only malformed bodies and infrastructure failures are non-2xx.
func (h *LivenessHandler) Verify(c *fiber.Ctx) error {
	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadInput.WithError(err)
	}
	if req.ChallengeID == "" {
		return domain.ErrBadInput.WithError(errors.New("challenge_id is required"))
	}
	if len(req.Frames) == 0 {
		return domain.ErrBadInput.WithError(errors.New("frames are required"))
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	frames := imaging.NewFrameSeq(req.Frames, h.maxUploadBytes)
	verdict, err := h.service.VerifyChallenge(ctx, req.ChallengeID, frames)
	if err != nil {
		return err
	}
	return c.JSON(verdict)
}

// Detect POST /api/v1/liveness/detect - run blink/orientation detection
// without challenge semantics.
func (h *LivenessHandler) Detect(c *fiber.Ctx) error {
	start := time.Now()

	var req DetectRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadInput.WithError(err)
	}
	if len(req.Frames) == 0 {
		return domain.ErrBadInput.WithError(errors.New("frames are required"))
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	frames := imaging.NewFrameSeq(req.Frames, h.maxUploadBytes)
	summary, err := h.service.Detect(ctx, frames, req.InitialBlinkCount)
	if err != nil {
		return err
	}

	return c.JSON(DetectResponse{
		DetectionResults: service.DetectionResults(summary),
		FramesProcessed:  frames.Len(),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Timestamp:        domain.Zulu(time.Now()),
	})
}
