// Package local provides deterministic CPU-only backends for every stage.
// It is the default backend set for development and tests: results are
// pure functions of the image bytes, so verdicts are reproducible without
// any model weights or cloud credentials.
package local

import (
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/Aman-Sigroha/kyc/internal/imaging"
	"github.com/Aman-Sigroha/kyc/internal/stage"
)

const (
	embeddingDimension = 512

	// minFaceDim is the smallest image side that can plausibly contain a
	// usable face.
	minFaceDim = 32

	// minLumaVariance separates flat synthetic images (no face) from
	// photographic content.
	minLumaVariance = 0.001
)

// Backends wires all four local backends.
type Backends struct{}

func New() *Backends {
	return &Backends{}
}

func (b *Backends) Detection(ctx context.Context) (stage.DetectionBackend, error) {
	return &detectionBackend{}, nil
}

func (b *Backends) Embedding(ctx context.Context) (stage.EmbeddingBackend, error) {
	return &embeddingBackend{}, nil
}

func (b *Backends) Text(ctx context.Context) (stage.TextBackend, error) {
	return &textBackend{}, nil
}

func (b *Backends) Pose(ctx context.Context) (stage.PoseBackend, error) {
	return &poseBackend{}, nil
}

var _ stage.Backends = (*Backends)(nil)

// detectionBackend reports a centered face box when the image carries
// enough luminance variance to be photographic content. It keeps a cached
// input size the way native detectors do, guarded for concurrent use.
type detectionBackend struct {
	mu     sync.Mutex
	inputW int
	inputH int
}

func (d *detectionBackend) Name() string { return "local-detector" }

func (d *detectionBackend) SetInputSize(width, height int) {
	d.mu.Lock()
	d.inputW, d.inputH = width, height
	d.mu.Unlock()
}

func (d *detectionBackend) Detect(ctx context.Context, img *imaging.Image) ([]stage.FaceBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img.Width < minFaceDim || img.Height < minFaceDim {
		return nil, nil
	}

	_, variance := lumaStats(img.Raster)
	if variance < minLumaVariance {
		return nil, nil
	}

	// Centered box over the middle 60% of the frame; confidence grows
	// with contrast.
	w := img.Width * 3 / 5
	h := img.Height * 3 / 5
	confidence := 0.6 + 0.39*math.Min(1, variance/0.05)

	return []stage.FaceBox{{
		X:          (img.Width - w) / 2,
		Y:          (img.Height - h) / 2,
		Width:      w,
		Height:     h,
		Confidence: confidence,
	}}, nil
}

// embeddingBackend derives a unit vector from a digest of the image bytes,
// so identical bytes always embed identically.
type embeddingBackend struct{}

func (e *embeddingBackend) Name() string { return "local-embedder" }

func (e *embeddingBackend) Embed(ctx context.Context, img *imaging.Image, box *stage.FaceBox) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digest := sha256.New()
	digest.Write(img.Bytes)
	if box != nil {
		fmt.Fprintf(digest, "%d:%d:%d:%d", box.X, box.Y, box.Width, box.Height)
	}
	hash := digest.Sum(nil)

	embedding := make([]float64, embeddingDimension)
	for i := range embedding {
		embedding[i] = (float64(hash[i%len(hash)])/255.0)*2 - 1
	}

	var norm float64
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding, nil
}

// textBackend emits a canned identity-card text whose document number is
// derived from the image digest. Enough for the field parser and scoring
// policy to run end to end without a real OCR model.
type textBackend struct{}

func (t *textBackend) Name() string { return "local-ocr" }

func (t *textBackend) RecognizeText(ctx context.Context, img *imaging.Image) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	hash := sha256.Sum256(img.Bytes)
	serial := uint64(hash[0])<<24 | uint64(hash[1])<<16 | uint64(hash[2])<<8 | uint64(hash[3])

	text := fmt.Sprintf(
		"IDENTITY CARD\nName: SAMPLE HOLDER\nDate of Birth: 01/01/1990\nDocument No: ID%08d\nNationality: UTOPIAN\nSex: M\nDate of Expiry: 01/01/2030",
		serial%100000000,
	)
	return text, 0.85, nil
}

// poseBackend reads eye openness and head rotation out of cheap luminance
// statistics: darker frames read as closed eyes, horizontal brightness
// asymmetry reads as a turn. Deterministic per frame.
type poseBackend struct{}

func (p *poseBackend) Name() string { return "local-pose" }

func (p *poseBackend) Analyze(ctx context.Context, img *imaging.Image) (stage.FramePose, error) {
	if err := ctx.Err(); err != nil {
		return stage.FramePose{}, err
	}

	mean, variance := lumaStats(img.Raster)
	if img.Width < minFaceDim || img.Height < minFaceDim || variance < minLumaVariance {
		return stage.FramePose{FaceDetected: false}, nil
	}

	left, right := halfLuma(img.Raster)
	var yaw float64
	if brightest := math.Max(left, right); brightest > 0 {
		yaw = 60 * (right - left) / brightest
	}

	return stage.FramePose{
		FaceDetected:   true,
		EyeAspectRatio: 0.12 + 0.25*mean,
		Yaw:            yaw,
	}, nil
}

// lumaStats returns mean and variance of normalized luminance over a
// subsampled grid.
func lumaStats(raster image.Image) (mean, variance float64) {
	bounds := raster.Bounds()
	stepX := max(1, bounds.Dx()/64)
	stepY := max(1, bounds.Dy()/64)

	var sum, sumSq float64
	n := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			l := luma(raster, x, y)
			sum += l
			sumSq += l * l
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	mean = sum / float64(n)
	variance = sumSq/float64(n) - mean*mean
	return mean, variance
}

// halfLuma returns mean luminance of the left and right image halves.
func halfLuma(raster image.Image) (left, right float64) {
	bounds := raster.Bounds()
	mid := bounds.Min.X + bounds.Dx()/2
	stepX := max(1, bounds.Dx()/64)
	stepY := max(1, bounds.Dy()/64)

	var leftSum, rightSum float64
	leftN, rightN := 0, 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			l := luma(raster, x, y)
			if x < mid {
				leftSum += l
				leftN++
			} else {
				rightSum += l
				rightN++
			}
		}
	}
	if leftN > 0 {
		left = leftSum / float64(leftN)
	}
	if rightN > 0 {
		right = rightSum / float64(rightN)
	}
	return left, right
}

func luma(raster image.Image, x, y int) float64 {
	r, g, b, _ := raster.At(x, y).RGBA()
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
}
