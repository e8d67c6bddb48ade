package stage

import (
	"context"
	"sync"
)

// Backends constructs the raw model backends the stages wrap. Construction
// may be expensive (model load, remote client setup) and may fail.
type Backends interface {
	Detection(ctx context.Context) (DetectionBackend, error)
	Embedding(ctx context.Context) (EmbeddingBackend, error)
	Text(ctx context.Context) (TextBackend, error)
	Pose(ctx context.Context) (PoseBackend, error)
}

// Options tunes the stages the registry builds.
type Options struct {
	// SimilarityThreshold is the cosine threshold for a verified match.
	SimilarityThreshold float64
	// DetectorConfidence is the minimum detection confidence; zero means
	// the stage default.
	DetectorConfidence float64
}

// StageStatus reports whether one stage constructed successfully.
type StageStatus struct {
	Loaded bool    `json:"loaded"`
	Name   string  `json:"name"`
	Error  *string `json:"error"`
}

// Report is the readiness view over all four stages. It backs /health.
type Report struct {
	Detector StageStatus `json:"detector"`
	Matcher  StageStatus `json:"matcher"`
	OCR      StageStatus `json:"ocr"`
	Liveness StageStatus `json:"liveness"`
}

// Healthy reports whether every stage loaded.
func (r Report) Healthy() bool {
	return r.Detector.Loaded && r.Matcher.Loaded && r.OCR.Loaded && r.Liveness.Loaded
}

// Registry lazily constructs and owns the four inference stages. Each
// stage is built at most once, behind its own latch, and shared across all
// requests afterwards. A stage whose construction fails stays failed; the
// registry remains usable for the stages that did load.
type Registry struct {
	backends Backends
	opts     Options

	detectorOnce sync.Once
	detector     *FaceDetector
	detectorName string
	detectorErr  error

	matcherOnce sync.Once
	matcher     *FaceMatcher
	matcherName string
	matcherErr  error

	ocrOnce sync.Once
	ocr     *DocumentOCR
	ocrName string
	ocrErr  error

	livenessOnce sync.Once
	liveness     *BlinkLiveness
	livenessName string
	livenessErr  error
}

func NewRegistry(backends Backends, opts Options) *Registry {
	return &Registry{backends: backends, opts: opts}
}

// Detector returns the shared face-detector stage, constructing it on
// first use.
func (r *Registry) Detector(ctx context.Context) (Detector, error) {
	r.detectorOnce.Do(func() {
		backend, err := r.backends.Detection(ctx)
		if err != nil {
			r.detectorErr = err
			return
		}
		r.detectorName = backend.Name()
		r.detector = NewFaceDetector(backend, r.opts.DetectorConfidence)
	})
	if r.detectorErr != nil {
		return nil, r.detectorErr
	}
	return r.detector, nil
}

// Matcher returns the shared face-matcher stage, constructing it on first
// use.
func (r *Registry) Matcher(ctx context.Context) (Matcher, error) {
	r.matcherOnce.Do(func() {
		backend, err := r.backends.Embedding(ctx)
		if err != nil {
			r.matcherErr = err
			return
		}
		r.matcherName = backend.Name()
		r.matcher = NewFaceMatcher(backend, r.opts.SimilarityThreshold)
	})
	if r.matcherErr != nil {
		return nil, r.matcherErr
	}
	return r.matcher, nil
}

// OCR returns the shared OCR stage, constructing it on first use.
func (r *Registry) OCR(ctx context.Context) (OCRExtractor, error) {
	r.ocrOnce.Do(func() {
		backend, err := r.backends.Text(ctx)
		if err != nil {
			r.ocrErr = err
			return
		}
		r.ocrName = backend.Name()
		r.ocr = NewDocumentOCR(backend)
	})
	if r.ocrErr != nil {
		return nil, r.ocrErr
	}
	return r.ocr, nil
}

// Liveness returns the shared liveness evaluator, constructing it on first
// use.
func (r *Registry) Liveness(ctx context.Context) (LivenessEvaluator, error) {
	r.livenessOnce.Do(func() {
		backend, err := r.backends.Pose(ctx)
		if err != nil {
			r.livenessErr = err
			return
		}
		r.livenessName = backend.Name()
		r.liveness = NewBlinkLiveness(backend)
	})
	if r.livenessErr != nil {
		return nil, r.livenessErr
	}
	return r.liveness, nil
}

// Readiness constructs any stage not yet attempted and reports per-stage
// status. Healthy iff all four loaded.
func (r *Registry) Readiness(ctx context.Context) Report {
	_, detErr := r.Detector(ctx)
	_, matErr := r.Matcher(ctx)
	_, ocrErr := r.OCR(ctx)
	_, livErr := r.Liveness(ctx)

	return Report{
		Detector: stageStatus(r.detectorName, detErr),
		Matcher:  stageStatus(r.matcherName, matErr),
		OCR:      stageStatus(r.ocrName, ocrErr),
		Liveness: stageStatus(r.livenessName, livErr),
	}
}

func stageStatus(name string, err error) StageStatus {
	if err != nil {
		msg := err.Error()
		return StageStatus{Loaded: false, Name: name, Error: &msg}
	}
	return StageStatus{Loaded: true, Name: name}
}
