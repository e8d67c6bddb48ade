package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// minSecretLen is the minimum length of the challenge signing secret.
const minSecretLen = 32

// Config holds the Inference Gateway configuration, loaded from the
// environment at startup.
type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"8000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Stage backends
	StageBackend string `envconfig:"STAGE_BACKEND" default:"local"`
	AWSRegion    string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Scoring
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.30"`
	PendingFaceFloor    float64 `envconfig:"PENDING_FACE_FLOOR" default:"0.35"`
	PendingOCRFloor     float64 `envconfig:"PENDING_OCR_FLOOR" default:"0.5"`

	// Uploads
	MaxUploadSizeMB int `envconfig:"MAX_UPLOAD_SIZE_MB" default:"10"`

	// Liveness challenges
	ChallengeTTLSeconds    int     `envconfig:"CHALLENGE_TTL_SECONDS" default:"120"`
	ChallengeCount         int     `envconfig:"CHALLENGE_COUNT" default:"2"`
	LivenessMinFrames      int     `envconfig:"LIVENESS_MIN_FRAMES" default:"10"`
	LivenessFaceRatioFloor float64 `envconfig:"LIVENESS_FACE_RATIO_FLOOR" default:"0.5"`

	// Requests
	RequestTimeoutSeconds int `envconfig:"REQUEST_TIMEOUT_SECONDS" default:"60"`

	// Security
	HMACSecret         string `envconfig:"HMAC_SECRET" required:"true"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.HMACSecret) < minSecretLen {
		return fmt.Errorf("HMAC_SECRET must be at least %d bytes", minSecretLen)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be between 0 and 1")
	}
	if c.ChallengeCount < 1 {
		return fmt.Errorf("CHALLENGE_COUNT must be at least 1")
	}
	if c.LivenessMinFrames < 1 {
		return fmt.Errorf("LIVENESS_MIN_FRAMES must be at least 1")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

// ChallengeTTL returns the challenge lifetime.
func (c *Config) ChallengeTTL() time.Duration {
	return time.Duration(c.ChallengeTTLSeconds) * time.Second
}

// RequestTimeout returns the end-to-end verification deadline.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// AllowedOrigins returns the configured CORS origins as a list.
func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// EdgeConfig holds the Edge Gateway configuration.
type EdgeConfig struct {
	Port        int    `envconfig:"EDGE_PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	// InferenceURL is the base URL of the Inference Gateway.
	InferenceURL string `envconfig:"INFERENCE_URL" default:"http://localhost:8000"`

	MaxUploadSizeMB    int    `envconfig:"MAX_UPLOAD_SIZE_MB" default:"10"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	RequestTimeoutSeconds int `envconfig:"REQUEST_TIMEOUT_SECONDS" default:"60"`
}

func LoadEdge() (*EdgeConfig, error) {
	var cfg EdgeConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load edge config: %w", err)
	}
	return &cfg, nil
}

func (c *EdgeConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

func (c *EdgeConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
