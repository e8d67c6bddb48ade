package stage

import (
	"context"
	"fmt"
	"math"

	"github.com/Aman-Sigroha/kyc/internal/imaging"
)

// FaceMatcher wraps an EmbeddingBackend and compares embeddings with
// cosine similarity on unit-normalized vectors.
type FaceMatcher struct {
	backend   EmbeddingBackend
	threshold float64
}

func NewFaceMatcher(backend EmbeddingBackend, threshold float64) *FaceMatcher {
	return &FaceMatcher{backend: backend, threshold: threshold}
}

// Embed extracts the embedding for the face inside box.
func (m *FaceMatcher) Embed(ctx context.Context, img *imaging.Image, box *FaceBox) (Embedding, error) {
	vec, err := m.backend.Embed(ctx, img, box)
	if err != nil {
		return nil, fmt.Errorf("embed face: %w", err)
	}
	return Embedding(vec), nil
}

// Compare computes cosine similarity and euclidean distance between two
// embeddings. Both metrics are taken on the unit-normalized vectors, so
// the result is deterministic for a fixed backend and image bytes.
func (m *FaceMatcher) Compare(a, b Embedding) (MatchResult, error) {
	if len(a) != len(b) || len(a) == 0 {
		return MatchResult{}, fmt.Errorf("compare embeddings (%d vs %d): %w", len(a), len(b), ErrEmbeddingLength)
	}

	na := normalize(a)
	nb := normalize(b)

	var dot, dist float64
	for i := range na {
		dot += na[i] * nb[i]
		diff := na[i] - nb[i]
		dist += diff * diff
	}

	cosine := dot
	return MatchResult{
		Cosine:    cosine,
		Euclidean: math.Sqrt(dist),
		Verified:  cosine >= m.threshold,
		Threshold: m.threshold,
	}, nil
}

func normalize(v Embedding) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)

	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

var _ Matcher = (*FaceMatcher)(nil)
