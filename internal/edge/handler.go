package edge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Aman-Sigroha/kyc/internal/domain"
	"github.com/Aman-Sigroha/kyc/internal/imaging"
)

// Handler serves the browser-facing edge endpoints.
type Handler struct {
	client         *Client
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewHandler(client *Client, maxUploadBytes int64, logger *slog.Logger) *Handler {
	return &Handler{
		client:         client,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// EnduserVerifyResponse is the legacy SDK response envelope. All terminal
// verdicts come back as HTTP 200; only technical faults are non-2xx.
type EnduserVerifyResponse struct {
	VerificationID string          `json:"verificationId"`
	Status         string          `json:"status"`
	Message        string          `json:"message"`
	Result         json.RawMessage `json:"result,omitempty"`
}

// inferenceError mirrors the inference gateway's error envelope.
type inferenceError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// verdictView picks the fields the edge needs from a verdict.
type verdictView struct {
	VerificationStatus string `json:"verification_status"`
	FaceDetails        struct {
		Message string `json:"message"`
	} `json:"face_verification_details"`
}

// EnduserVerify POST /v2/enduser/verify - legacy JSON entry point.
func (h *Handler) EnduserVerify(c *fiber.Ctx) error {
	var req LegacyVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadInput.WithError(err)
	}

	frontID, selfie, err := ExtractPair(req, h.maxUploadBytes)
	if err != nil {
		if errors.Is(err, imaging.ErrTooLarge) {
			return domain.ErrPayloadTooLarge.WithError(err)
		}
		return domain.ErrBadInput.WithError(err)
	}
	if frontID == nil {
		return domain.ErrBadInput.WithError(errors.New("no front ID document in request"))
	}
	if selfie == nil {
		return domain.ErrBadInput.WithError(errors.New("no selfie document in request"))
	}

	outcome, err := h.client.VerifyKYC(c.Context(), frontID.Data, selfie.Data)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}

	verificationID := uuid.New().String()

	switch {
	case outcome.StatusCode == fiber.StatusOK:
		var view verdictView
		if err := json.Unmarshal(outcome.Body, &view); err != nil {
			return domain.ErrInternal.WithError(fmt.Errorf("decode verdict: %w", err))
		}
		return c.JSON(EnduserVerifyResponse{
			VerificationID: verificationID,
			Status:         view.VerificationStatus,
			Message:        view.FaceDetails.Message,
			Result:         outcome.Body,
		})

	case outcome.StatusCode == fiber.StatusBadRequest:
		// A missing face is a rejection for the browser SDK, not an
		// error: translate the gateway's 400 back into 200-with-status.
		var infErr inferenceError
		if err := json.Unmarshal(outcome.Body, &infErr); err == nil && isNoFaceCode(infErr.Error.Code) {
			return c.JSON(EnduserVerifyResponse{
				VerificationID: verificationID,
				Status:         string(domain.StatusRejected),
				Message:        infErr.Error.Message,
			})
		}
		return forwardError(c, outcome)

	case outcome.StatusCode == fiber.StatusRequestEntityTooLarge,
		outcome.StatusCode == fiber.StatusServiceUnavailable,
		outcome.StatusCode == fiber.StatusGatewayTimeout:
		return forwardError(c, outcome)

	default:
		h.logger.Error("inference gateway fault",
			slog.Int("status", outcome.StatusCode),
		)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "UPSTREAM_FAILURE",
				"message": "Verification service failed",
			},
		})
	}
}

func isNoFaceCode(code string) bool {
	return code == domain.ErrNoFaceInID.Code || code == domain.ErrNoFaceInSelfie.Code
}

// forwardError relays an inference error envelope with its status code.
func forwardError(c *fiber.Ctx, outcome *Outcome) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(outcome.StatusCode).Send(outcome.Body)
}

// Proxy relays a canonical API request to the inference gateway untouched.
func (h *Handler) Proxy(c *fiber.Ctx) error {
	outcome, err := h.client.Forward(c.Context(), c.Method(), c.Path(), c.Get(fiber.HeaderContentType), c.Body())
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	if outcome.ContentType != "" {
		c.Set(fiber.HeaderContentType, outcome.ContentType)
	}
	return c.Status(outcome.StatusCode).Send(outcome.Body)
}

// Health GET /api/v1/health - readiness proxied from the inference
// gateway.
func (h *Handler) Health(c *fiber.Ctx) error {
	outcome, err := h.client.Health(c.Context())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unreachable",
		})
	}
	if outcome.ContentType != "" {
		c.Set(fiber.HeaderContentType, outcome.ContentType)
	}
	return c.Status(outcome.StatusCode).Send(outcome.Body)
}
