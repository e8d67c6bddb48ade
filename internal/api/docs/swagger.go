package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
)

// VerificationVerdictResponse documents the full verification verdict.
type VerificationVerdictResponse struct {
	VerificationStatus string  `json:"verification_status" example:"approved"`
	ConfidenceScore    float64 `json:"confidence_score" example:"0.878"`
	FaceMatchScore     float64 `json:"face_match_score" example:"0.85"`
	ProcessingTimeMs   int64   `json:"processing_time_ms" example:"412"`
	Timestamp          string  `json:"timestamp" example:"2024-01-01T00:00:00Z"`
}

// OCRWrapperResponse documents the standalone OCR response.
type OCRWrapperResponse struct {
	ProcessingTimeMs int64  `json:"processing_time_ms" example:"120"`
	Timestamp        string `json:"timestamp" example:"2024-01-01T00:00:00Z"`
}

// ChallengeResponse documents an issued liveness challenge.
type ChallengeResponse struct {
	ChallengeID    string   `json:"challenge_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	MultiChallenge bool     `json:"multi_challenge" example:"true"`
	ChallengeTypes []string `json:"challenge_types" example:"blink,turn_left"`
	Timestamp      int64    `json:"timestamp" example:"1700000000"`
	ExpiresAt      int64    `json:"expires_at" example:"1700000120"`
	Nonce          string   `json:"nonce" example:"9f86d081884c7d65"`
	Signature      string   `json:"signature" example:"b5bb9d8014a0f9b1"`
}

// LivenessVerdictResponse documents the liveness verdict.
type LivenessVerdictResponse struct {
	ChallengeID      string `json:"challenge_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Status           string `json:"status" example:"pass"`
	Message          string `json:"message" example:"All challenges completed: blink, turn_left"`
	ProcessingTimeMs int64  `json:"processing_time_ms" example:"230"`
}

// DetectionSummaryResponse documents the raw detection summary.
type DetectionSummaryResponse struct {
	FramesProcessed  int    `json:"frames_processed" example:"12"`
	ProcessingTimeMs int64  `json:"processing_time_ms" example:"180"`
	Timestamp        string `json:"timestamp" example:"2024-01-01T00:00:00Z"`
}

// HealthResponse documents stage readiness.
type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Code    string `json:"code" example:"BAD_INPUT"`
	Message string `json:"message" example:"Malformed request or undecodable image"`
}

// NewSwagger creates and configures the Swagger documentation.
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "KYC Inference Gateway API",
		Version:     "v1.0.0",
		Description: "Identity verification: face matching, document OCR and challenge-response liveness",
		Host:        "localhost:8000",
		Path:        "/api/v1",
	})

	endpoints := []*endpoint.EndPoint{
		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Stage readiness"),
			endpoint.WithDescription("Reports per-stage load status; healthy only when all four stages loaded"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "All stages loaded"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(HealthResponse{Status: "unhealthy"}, "503", "One or more stages failed to load"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/kyc/verify",
			endpoint.WithTags("KYC"),
			endpoint.WithSummary("Full KYC verification"),
			endpoint.WithDescription("Matches the selfie against the ID document face and extracts document fields. Multipart parts: id_document (required), id_document_back (optional), selfie_image (required), all JPEG/PNG"),
			endpoint.WithConsume([]mime.MIME{mime.MULTIFORM}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(VerificationVerdictResponse{}, "200", "Verdict produced"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NO_FACE_IN_ID"}, "400", "Bad input or no face"),
				response.New(ErrorResponse{Code: "PAYLOAD_TOO_LARGE"}, "413", "Image exceeds size cap"),
				response.New(ErrorResponse{Code: "NOT_READY"}, "503", "Stage not loaded"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/kyc/ocr",
			endpoint.WithTags("KYC"),
			endpoint.WithSummary("Document OCR"),
			endpoint.WithDescription("Extracts free text and structured fields from a document image. Multipart part: document (required), JPEG/PNG"),
			endpoint.WithConsume([]mime.MIME{mime.MULTIFORM}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(OCRWrapperResponse{}, "200", "Extraction completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{}, "400", "Bad input"),
				response.New(ErrorResponse{Code: "PAYLOAD_TOO_LARGE"}, "413", "Image exceeds size cap"),
				response.New(ErrorResponse{Code: "NOT_READY"}, "503", "Stage not loaded"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/liveness/challenge",
			endpoint.WithTags("Liveness"),
			endpoint.WithSummary("Issue a liveness challenge"),
			endpoint.WithDescription("Creates a signed challenge with randomly drawn predicates"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ChallengeResponse{}, "200", "Challenge issued"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NOT_READY"}, "503", "Service not ready"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/liveness/verify",
			endpoint.WithTags("Liveness"),
			endpoint.WithSummary("Verify frames against a challenge"),
			endpoint.WithDescription("Evaluates a base64 frame batch against the challenge's expected actions"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LivenessVerdictResponse{}, "200", "Verdict produced (pass, fail, expired or invalid)"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{}, "400", "Malformed body"),
				response.New(ErrorResponse{Code: "NOT_READY"}, "503", "Stage not loaded"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/liveness/detect",
			endpoint.WithTags("Liveness"),
			endpoint.WithSummary("Raw blink and orientation detection"),
			endpoint.WithDescription("Runs the liveness evaluator without challenge semantics"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DetectionSummaryResponse{}, "200", "Detection summary"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{}, "400", "Malformed body"),
				response.New(ErrorResponse{Code: "NOT_READY"}, "503", "Stage not loaded"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
