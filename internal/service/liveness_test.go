package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-Sigroha/kyc/internal/challenge"
	"github.com/Aman-Sigroha/kyc/internal/domain"
	"github.com/Aman-Sigroha/kyc/internal/imaging"
	"github.com/Aman-Sigroha/kyc/internal/stage"
)

// scriptedBackends serves a fixed pose script in frame order, wrapping
// back to the start when the script runs out. The position is shared by
// the whole fixture and does not restart for a fresh FrameSeq.
type scriptedBackends struct {
	stubBackends
	poses []stage.FramePose

	mu   sync.Mutex
	call int
}

func (b *scriptedBackends) Pose(ctx context.Context) (stage.PoseBackend, error) {
	return &scriptedPose{b: b}, nil
}

type scriptedPose struct{ b *scriptedBackends }

func (s *scriptedPose) Name() string { return "scripted-pose" }

func (s *scriptedPose) Analyze(ctx context.Context, img *imaging.Image) (stage.FramePose, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	pose := s.b.poses[s.b.call%len(s.b.poses)]
	s.b.call++
	return pose, nil
}

type livenessFixture struct {
	svc   *LivenessService
	store *challenge.Store
	clock *clock
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLivenessFixture(poses []stage.FramePose) *livenessFixture {
	clk := &clock{now: time.Unix(1700000000, 0)}
	store := challenge.NewStore([]byte("0123456789abcdef0123456789abcdef"), 120*time.Second, 2, challenge.WithClock(clk.Now))

	backends := &scriptedBackends{poses: poses}
	registry := stage.NewRegistry(backends, stage.Options{SimilarityThreshold: 0.30})

	svc := NewLivenessService(registry, store, LivenessConfig{
		MinFrames:      10,
		FaceRatioFloor: 0.5,
	}, testLogger())

	return &livenessFixture{svc: svc, store: store, clock: clk}
}

func frameBatch(t *testing.T, n int) *imaging.FrameSeq {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.Gray{Y: uint8((x * y) % 256)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	frames := make([]string, n)
	for i := range frames {
		frames[i] = encoded
	}
	return imaging.NewFrameSeq(frames, 0)
}

// satisfyAllPoses covers every predicate type: one blink plus turns to
// both sides.
func satisfyAllPoses() []stage.FramePose {
	open := func(yaw float64) stage.FramePose {
		return stage.FramePose{FaceDetected: true, EyeAspectRatio: 0.30, Yaw: yaw}
	}
	return []stage.FramePose{
		open(0), open(0),
		{FaceDetected: true, EyeAspectRatio: 0.15}, // eyes closed
		open(0), // reopen: one blink
		open(-30), open(-30), open(-30),            // turn left
		open(30), open(30),                         // turn right
		open(0), open(0), open(0), open(0), open(0), open(0),
	}
}

func TestVerifyChallengePass(t *testing.T) {
	fix := newLivenessFixture(satisfyAllPoses())

	ch, err := fix.store.Issue()
	require.NoError(t, err)

	verdict, err := fix.svc.VerifyChallenge(context.Background(), ch.ID, frameBatch(t, 15))
	require.NoError(t, err)

	assert.Equal(t, domain.LivenessPass, verdict.Status)
	for _, p := range ch.Predicates {
		assert.Contains(t, verdict.Message, string(p))
	}
	assert.GreaterOrEqual(t, verdict.DetectionResults.Blinks, 1)
	assert.True(t, verdict.DetectionResults.FaceDetected)
	assert.Len(t, verdict.DetectionResults.Orientations, 15)

	// A second submission with the same id never passes again.
	second, err := fix.svc.VerifyChallenge(context.Background(), ch.ID, frameBatch(t, 15))
	require.NoError(t, err)
	assert.NotEqual(t, domain.LivenessPass, second.Status)
}

func TestVerifyChallengeFailsPredicates(t *testing.T) {
	// Eyes open, head straight: nothing is satisfied.
	still := stage.FramePose{FaceDetected: true, EyeAspectRatio: 0.30}
	fix := newLivenessFixture([]stage.FramePose{still})

	ch, err := fix.store.Issue()
	require.NoError(t, err)

	verdict, err := fix.svc.VerifyChallenge(context.Background(), ch.ID, frameBatch(t, 12))
	require.NoError(t, err)

	assert.Equal(t, domain.LivenessFail, verdict.Status)
	assert.Contains(t, verdict.Message, "challenges failed")

	// A failed attempt does not burn the challenge.
	_, ok := fix.store.Lookup(ch.ID)
	assert.True(t, ok)
}

func TestVerifyChallengeFrameBoundary(t *testing.T) {
	fix := newLivenessFixture(satisfyAllPoses())

	t.Run("one frame short fails", func(t *testing.T) {
		ch, err := fix.store.Issue()
		require.NoError(t, err)

		verdict, err := fix.svc.VerifyChallenge(context.Background(), ch.ID, frameBatch(t, 9))
		require.NoError(t, err)

		assert.Equal(t, domain.LivenessFail, verdict.Status)
		assert.Contains(t, verdict.Message, "not enough frames")
	})

	t.Run("exactly the minimum is accepted", func(t *testing.T) {
		ch, err := fix.store.Issue()
		require.NoError(t, err)

		verdict, err := fix.svc.VerifyChallenge(context.Background(), ch.ID, frameBatch(t, 10))
		require.NoError(t, err)
		assert.NotContains(t, verdict.Message, "not enough frames")
	})
}

func TestVerifyChallengeFaceRatioFloor(t *testing.T) {
	visible := stage.FramePose{FaceDetected: true, EyeAspectRatio: 0.30}
	missing := stage.FramePose{FaceDetected: false}
	fix := newLivenessFixture([]stage.FramePose{visible, missing, missing, missing})

	ch, err := fix.store.Issue()
	require.NoError(t, err)

	verdict, err := fix.svc.VerifyChallenge(context.Background(), ch.ID, frameBatch(t, 12))
	require.NoError(t, err)

	assert.Equal(t, domain.LivenessFail, verdict.Status)
	assert.Contains(t, verdict.Message, "face not consistently visible")
}

func TestVerifyChallengeExpired(t *testing.T) {
	fix := newLivenessFixture(satisfyAllPoses())

	ch, err := fix.store.Issue()
	require.NoError(t, err)

	fix.clock.Advance(121 * time.Second)

	verdict, err := fix.svc.VerifyChallenge(context.Background(), ch.ID, frameBatch(t, 15))
	require.NoError(t, err)

	assert.Equal(t, domain.LivenessInvalid, verdict.Status)
	assert.Contains(t, verdict.Message, "not found or expired")
}

func TestVerifyChallengeUnknownID(t *testing.T) {
	fix := newLivenessFixture(satisfyAllPoses())

	verdict, err := fix.svc.VerifyChallenge(context.Background(), "no-such-id", frameBatch(t, 15))
	require.NoError(t, err)
	assert.Equal(t, domain.LivenessInvalid, verdict.Status)
}

func TestDetect(t *testing.T) {
	fix := newLivenessFixture(satisfyAllPoses())

	summary, err := fix.svc.Detect(context.Background(), frameBatch(t, 15), 1)
	require.NoError(t, err)

	// The blink from the script plus the caller's initial count.
	assert.Equal(t, 2, summary.Blinks)
	assert.Len(t, summary.Orientations, 15)
}
