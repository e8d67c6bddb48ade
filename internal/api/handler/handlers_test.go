package handler

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/Aman-Sigroha/kyc/internal/api/middleware"
	"github.com/Aman-Sigroha/kyc/internal/challenge"
	"github.com/Aman-Sigroha/kyc/internal/service"
	"github.com/Aman-Sigroha/kyc/internal/stage"
	"github.com/Aman-Sigroha/kyc/internal/stage/local"
)

const testMaxUpload = int64(10 * 1024 * 1024)

// fixture wires a fiber app over the local deterministic backends, the
// way the router does in production.
type fixture struct {
	app      *fiber.App
	registry *stage.Registry
	store    *challenge.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := stage.NewRegistry(local.New(), stage.Options{SimilarityThreshold: 0.30})
	store := challenge.NewStore([]byte("0123456789abcdef0123456789abcdef"), 120*time.Second, 2)

	kycService := service.NewKYCService(registry, service.ScoringConfig{
		SimilarityThreshold: 0.30,
		PendingFaceFloor:    0.35,
		PendingOCRFloor:     0.5,
	}, logger)
	livenessService := service.NewLivenessService(registry, store, service.LivenessConfig{
		MinFrames:      10,
		FaceRatioFloor: 0.5,
	}, logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
	})

	healthHandler := NewHealthHandler(registry)
	app.Get("/api/v1/health", healthHandler.Health)

	kycHandler := NewKYCHandler(kycService, testMaxUpload, 30*time.Second, logger)
	app.Post("/api/v1/kyc/verify", kycHandler.Verify)
	app.Post("/api/v1/kyc/ocr", kycHandler.OCR)

	livenessHandler := NewLivenessHandler(livenessService, testMaxUpload, 30*time.Second, logger)
	app.Get("/api/v1/liveness/challenge", livenessHandler.Challenge)
	app.Post("/api/v1/liveness/verify", livenessHandler.Verify)
	app.Post("/api/v1/liveness/detect", livenessHandler.Detect)

	return &fixture{app: app, registry: registry, store: store}
}

// noisyPNG renders textured content the local detector accepts as a face.
func noisyPNG(t *testing.T, seed uint8) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8((x*7 + y*13 + int(seed)*31) % 256)
			img.Set(x, y, color.RGBA{R: v, G: 255 - v, B: v / 2, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// flatPNG renders a uniform image the local detector sees no face in.
func flatPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartBody builds a multipart form of image file parts.
func multipartBody(t *testing.T, parts map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for field, data := range parts {
		part, err := writer.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}
