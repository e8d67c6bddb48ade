// Package rekognition backs the detection, OCR and pose stages with AWS
// Rekognition. Rekognition does not expose raw face embeddings, so the
// embedding backend stays the local deterministic one even when this set
// is selected.
package rekognition

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/smithy-go"
)

const (
	errCodeAccessDenied     = "AccessDeniedException"
	errCodeInvalidParameter = "InvalidParameterException"
	errCodeThrottling       = "ThrottlingException"
)

var (
	// ErrInvalidCredentials indicates that AWS credentials are invalid or missing.
	ErrInvalidCredentials = errors.New("invalid or missing AWS credentials")
	// ErrThrottled indicates AWS rejected the call for rate limiting.
	ErrThrottled = errors.New("rekognition request throttled")
)

// Config holds the settings for the Rekognition backends.
type Config struct {
	// Region is the AWS region to call (e.g. "us-east-1").
	Region string
}

// Client wraps the AWS Rekognition client.
type Client struct {
	rekognition *rekognition.Client
	config      Config
}

// NewClient builds a Rekognition client using the AWS default credential
// chain.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Client{
		rekognition: rekognition.NewFromConfig(awsCfg),
		config:      cfg,
	}, nil
}

// classifyAWSError maps the API error codes this service cares about onto
// stable sentinel errors.
func classifyAWSError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case errCodeAccessDenied:
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.ErrorMessage())
		case errCodeThrottling:
			return fmt.Errorf("%w: %s", ErrThrottled, apiErr.ErrorMessage())
		}
	}
	return err
}
