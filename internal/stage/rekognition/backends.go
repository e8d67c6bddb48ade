package rekognition

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/Aman-Sigroha/kyc/internal/imaging"
	"github.com/Aman-Sigroha/kyc/internal/stage"
	"github.com/Aman-Sigroha/kyc/internal/stage/local"
)

// Backends wires the Rekognition-backed backend set. The client is shared;
// stage construction only fails when the AWS config cannot be loaded.
type Backends struct {
	cfg Config

	mu     sync.Mutex
	client *Client
	local  *local.Backends
}

func New(cfg Config) *Backends {
	return &Backends{cfg: cfg, local: local.New()}
}

func (b *Backends) getClient(ctx context.Context) (*Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		client, err := NewClient(ctx, b.cfg)
		if err != nil {
			return nil, err
		}
		b.client = client
	}
	return b.client, nil
}

func (b *Backends) Detection(ctx context.Context) (stage.DetectionBackend, error) {
	client, err := b.getClient(ctx)
	if err != nil {
		return nil, err
	}
	return &detectionBackend{client: client}, nil
}

// Embedding falls through to the local deterministic embedder: Rekognition
// keeps embeddings server-side and never returns the vectors.
func (b *Backends) Embedding(ctx context.Context) (stage.EmbeddingBackend, error) {
	return b.local.Embedding(ctx)
}

func (b *Backends) Text(ctx context.Context) (stage.TextBackend, error) {
	client, err := b.getClient(ctx)
	if err != nil {
		return nil, err
	}
	return &textBackend{client: client}, nil
}

func (b *Backends) Pose(ctx context.Context) (stage.PoseBackend, error) {
	client, err := b.getClient(ctx)
	if err != nil {
		return nil, err
	}
	return &poseBackend{client: client}, nil
}

var _ stage.Backends = (*Backends)(nil)

// detectionBackend maps DetectFaces onto the detection contract.
// Rekognition is size-agnostic, so SetInputSize only records the hint.
type detectionBackend struct {
	client *Client

	mu     sync.Mutex
	inputW int
	inputH int
}

func (d *detectionBackend) Name() string { return "rekognition-detector" }

func (d *detectionBackend) SetInputSize(width, height int) {
	d.mu.Lock()
	d.inputW, d.inputH = width, height
	d.mu.Unlock()
}

func (d *detectionBackend) Detect(ctx context.Context, img *imaging.Image) ([]stage.FaceBox, error) {
	input := &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: img.Bytes},
		Attributes: []types.Attribute{types.AttributeDefault},
	}

	output, err := d.client.rekognition.DetectFaces(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("rekognition detect faces: %w", classifyAWSError(err))
	}

	boxes := make([]stage.FaceBox, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil || detail.Confidence == nil {
			continue
		}
		boxes = append(boxes, stage.FaceBox{
			X:          int(float64(*detail.BoundingBox.Left) * float64(img.Width)),
			Y:          int(float64(*detail.BoundingBox.Top) * float64(img.Height)),
			Width:      int(float64(*detail.BoundingBox.Width) * float64(img.Width)),
			Height:     int(float64(*detail.BoundingBox.Height) * float64(img.Height)),
			Confidence: float64(*detail.Confidence) / 100.0,
		})
	}
	return boxes, nil
}

// textBackend maps DetectText onto the OCR contract. Line detections are
// concatenated in reading order; confidence is the mean over lines.
type textBackend struct {
	client *Client
}

func (t *textBackend) Name() string { return "rekognition-ocr" }

func (t *textBackend) RecognizeText(ctx context.Context, img *imaging.Image) (string, float64, error) {
	input := &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: img.Bytes},
	}

	output, err := t.client.rekognition.DetectText(ctx, input)
	if err != nil {
		return "", 0, fmt.Errorf("rekognition detect text: %w", classifyAWSError(err))
	}

	var lines []string
	var confSum float64
	for _, det := range output.TextDetections {
		if det.Type != types.TextTypesLine || det.DetectedText == nil {
			continue
		}
		lines = append(lines, *det.DetectedText)
		if det.Confidence != nil {
			confSum += float64(*det.Confidence) / 100.0
		}
	}

	if len(lines) == 0 {
		return "", 0, nil
	}
	return strings.Join(lines, "\n"), confSum / float64(len(lines)), nil
}

// poseBackend reads eye openness and yaw from DetectFaces with full
// attributes. EyesOpen is a boolean with confidence, so the eye aspect
// ratio is synthesized on either side of the stage's hysteresis band.
type poseBackend struct {
	client *Client
}

func (p *poseBackend) Name() string { return "rekognition-pose" }

const (
	earEyesOpen   = 0.30
	earEyesClosed = 0.15
)

func (p *poseBackend) Analyze(ctx context.Context, img *imaging.Image) (stage.FramePose, error) {
	input := &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: img.Bytes},
		Attributes: []types.Attribute{types.AttributeAll},
	}

	output, err := p.client.rekognition.DetectFaces(ctx, input)
	if err != nil {
		return stage.FramePose{}, fmt.Errorf("rekognition analyze frame: %w", classifyAWSError(err))
	}
	if len(output.FaceDetails) == 0 {
		return stage.FramePose{FaceDetected: false}, nil
	}

	detail := output.FaceDetails[0]
	pose := stage.FramePose{FaceDetected: true, EyeAspectRatio: earEyesOpen}

	if detail.EyesOpen != nil && !detail.EyesOpen.Value {
		pose.EyeAspectRatio = earEyesClosed
	}
	if detail.Pose != nil && detail.Pose.Yaw != nil {
		pose.Yaw = float64(*detail.Pose.Yaw)
	}
	return pose, nil
}
