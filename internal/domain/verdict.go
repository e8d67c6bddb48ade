package domain

import (
	"encoding/json"
	"time"
)

// VerificationStatus is the terminal outcome of a full KYC verification.
type VerificationStatus string

const (
	StatusApproved VerificationStatus = "approved"
	StatusRejected VerificationStatus = "rejected"
	StatusPending  VerificationStatus = "pending"
	StatusError    VerificationStatus = "error"
)

// DocumentType is the closed set of identity document labels.
type DocumentType string

const (
	DocPassport       DocumentType = "passport"
	DocDriversLicense DocumentType = "drivers_license"
	DocNationalID     DocumentType = "national_id"
	DocIDCard         DocumentType = "id_card"
	DocPANCard        DocumentType = "pan_card"
	DocOther          DocumentType = "other"
)

// DocumentFields is the structured field set extracted from an identity
// document. Every key is always present; undetected fields are null.
type DocumentFields struct {
	FullName       *string `json:"full_name"`
	DateOfBirth    *string `json:"date_of_birth"`
	DocumentNumber *string `json:"document_number"`
	Nationality    *string `json:"nationality"`
	IssueDate      *string `json:"issue_date"`
	ExpiryDate     *string `json:"expiry_date"`
	PlaceOfBirth   *string `json:"place_of_birth"`
	Address        *string `json:"address"`
	Gender         *string `json:"gender"`
}

// OCRData is the OCR portion of a verification verdict.
type OCRData struct {
	DocumentType  DocumentType   `json:"document_type"`
	Confidence    float64        `json:"confidence"`
	ExtractedText string         `json:"extracted_text"`
	Fields        DocumentFields `json:"fields"`
}

// SimilarityMetrics carries the raw face comparison numbers.
type SimilarityMetrics struct {
	CosineSimilarity  float64 `json:"cosine_similarity"`
	EuclideanDistance float64 `json:"euclidean_distance"`
}

// FaceVerificationDetails is the face-match sub-record of a verdict.
type FaceVerificationDetails struct {
	Verified          bool              `json:"verified"`
	Confidence        float64           `json:"confidence"`
	SimilarityMetrics SimilarityMetrics `json:"similarity_metrics"`
	ThresholdUsed     float64           `json:"threshold_used"`
	Message           string            `json:"message"`
}

// VerificationVerdict is the structured decision for a full KYC request.
type VerificationVerdict struct {
	VerificationStatus      VerificationStatus      `json:"verification_status"`
	ConfidenceScore         float64                 `json:"confidence_score"`
	FaceMatchScore          float64                 `json:"face_match_score"`
	OCRData                 *OCRData                `json:"ocr_data,omitempty"`
	ProcessingTimeMs        int64                   `json:"processing_time_ms"`
	Timestamp               string                  `json:"timestamp"`
	FaceVerificationDetails FaceVerificationDetails `json:"face_verification_details"`
}

// LivenessStatus is the terminal outcome of a liveness verification.
type LivenessStatus string

const (
	LivenessPass    LivenessStatus = "pass"
	LivenessFail    LivenessStatus = "fail"
	LivenessExpired LivenessStatus = "expired"
	LivenessInvalid LivenessStatus = "invalid"
)

// Orientation is a per-frame head direction. The zero value means no
// discernible turn and marshals as JSON null.
type Orientation string

const (
	OrientationLeft  Orientation = "left"
	OrientationRight Orientation = "right"
	OrientationNone  Orientation = ""
)

func (o Orientation) MarshalJSON() ([]byte, error) {
	if o == OrientationNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(o))
}

func (o *Orientation) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = OrientationNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = Orientation(s)
	return nil
}

// DetectionResults summarizes what the liveness evaluator observed.
type DetectionResults struct {
	Blinks       int           `json:"blinks"`
	Orientation  Orientation   `json:"orientation"`
	Orientations []Orientation `json:"orientations"`
	FaceDetected bool          `json:"face_detected"`
}

// LivenessVerdict is the structured decision for a liveness verification.
type LivenessVerdict struct {
	ChallengeID      string           `json:"challenge_id"`
	Status           LivenessStatus   `json:"status"`
	Message          string           `json:"message"`
	DetectionResults DetectionResults `json:"detection_results"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	Timestamp        string           `json:"timestamp"`
}

// Zulu formats a timestamp the way verdicts carry them.
func Zulu(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
