package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Aman-Sigroha/kyc/internal/domain"
	"github.com/Aman-Sigroha/kyc/internal/imaging"
	"github.com/Aman-Sigroha/kyc/internal/service"
)

// KYCHandler serves the full verification and standalone OCR endpoints.
type KYCHandler struct {
	service        *service.KYCService
	maxUploadBytes int64
	timeout        time.Duration
	logger         *slog.Logger
}

func NewKYCHandler(svc *service.KYCService, maxUploadBytes int64, timeout time.Duration, logger *slog.Logger) *KYCHandler {
	return &KYCHandler{
		service:        svc,
		maxUploadBytes: maxUploadBytes,
		timeout:        timeout,
		logger:         logger,
	}
}

// OCRResponse wraps the standalone OCR result.
type OCRResponse struct {
	OCRData          *domain.OCRData `json:"ocr_data"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
	Timestamp        string          `json:"timestamp"`
}

// Verify POST /api/v1/kyc/verify - run the full verification pipeline.
func (h *KYCHandler) Verify(c *fiber.Ctx) error {
	idDoc, err := h.formImage(c, "id_document", true)
	if err != nil {
		return err
	}
	selfie, err := h.formImage(c, "selfie_image", true)
	if err != nil {
		return err
	}
	// The back side is accepted and validated but not consumed by the
	// current pipeline.
	if _, err := h.formImage(c, "id_document_back", false); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	verdict, err := h.service.Verify(ctx, idDoc, selfie)
	if err != nil {
		return err
	}
	return c.JSON(verdict)
}

// OCR POST /api/v1/kyc/ocr - extract structured fields from one document.
func (h *KYCHandler) OCR(c *fiber.Ctx) error {
	start := time.Now()

	doc, err := h.formImage(c, "document", true)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	data, err := h.service.ExtractDocument(ctx, doc)
	if err != nil {
		return err
	}

	return c.JSON(OCRResponse{
		OCRData:          data,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Timestamp:        domain.Zulu(time.Now()),
	})
}

// formImage pulls one multipart file and decodes it. A missing optional
// part returns (nil, nil).
func (h *KYCHandler) formImage(c *fiber.Ctx, field string, required bool) (*imaging.Image, error) {
	file, err := c.FormFile(field)
	if err != nil {
		if !required {
			return nil, nil
		}
		return nil, domain.ErrBadInput.WithError(fmt.Errorf("missing form file %q", field))
	}

	if file.Size > h.maxUploadBytes {
		return nil, domain.ErrPayloadTooLarge.WithError(fmt.Errorf("%s is %d bytes", field, file.Size))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrBadInput.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrBadInput.WithError(err)
	}

	img, err := imaging.Decode(data, h.maxUploadBytes)
	if err != nil {
		if errors.Is(err, imaging.ErrTooLarge) {
			return nil, domain.ErrPayloadTooLarge.WithError(err)
		}
		return nil, domain.ErrBadInput.WithError(fmt.Errorf("%s: %w", field, err))
	}
	return img, nil
}
