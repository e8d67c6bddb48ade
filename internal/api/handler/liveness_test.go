package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-Sigroha/kyc/internal/domain"
)

func TestChallengeEndpoint(t *testing.T) {
	fix := newFixture(t)

	req := httptest.NewRequest("GET", "/api/v1/liveness/challenge", nil)
	resp, err := fix.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, 200, resp.StatusCode)

	var ch ChallengeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ch))

	assert.NotEmpty(t, ch.ChallengeID)
	assert.Len(t, ch.ChallengeTypes, 2)
	assert.True(t, ch.MultiChallenge)
	assert.Len(t, ch.Questions, 2)
	assert.Len(t, ch.Instructions, 2)
	assert.Equal(t, ch.Timestamp+120, ch.ExpiresAt)
	assert.NotEmpty(t, ch.Nonce)
	assert.NotEmpty(t, ch.Signature)

	for _, typ := range ch.ChallengeTypes {
		assert.Contains(t, []string{"blink", "turn_left", "turn_right"}, typ)
	}

	// The stored challenge matches what was issued.
	stored, ok := fix.store.Lookup(ch.ChallengeID)
	require.True(t, ok)
	assert.Equal(t, ch.Signature, stored.Signature)
}

func TestLivenessVerifyEndpoint(t *testing.T) {
	fix := newFixture(t)

	frame := base64.StdEncoding.EncodeToString(noisyPNG(t, 5))

	t.Run("bad body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/liveness/verify", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")

		resp, err := fix.app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("missing challenge id", func(t *testing.T) {
		payload, _ := json.Marshal(VerifyRequest{Frames: []string{frame}})
		req := httptest.NewRequest("POST", "/api/v1/liveness/verify", bytes.NewBuffer(payload))
		req.Header.Set("Content-Type", "application/json")

		resp, err := fix.app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("unknown challenge is a 200 invalid verdict", func(t *testing.T) {
		frames := make([]string, 12)
		for i := range frames {
			frames[i] = frame
		}
		payload, _ := json.Marshal(VerifyRequest{ChallengeID: "unknown", Frames: frames})
		req := httptest.NewRequest("POST", "/api/v1/liveness/verify", bytes.NewBuffer(payload))
		req.Header.Set("Content-Type", "application/json")

		resp, err := fix.app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, 200, resp.StatusCode)

		var verdict domain.LivenessVerdict
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&verdict))
		assert.Equal(t, domain.LivenessInvalid, verdict.Status)
	})

	t.Run("too few frames is a 200 fail verdict", func(t *testing.T) {
		ch, err := fix.store.Issue()
		require.NoError(t, err)

		payload, _ := json.Marshal(VerifyRequest{ChallengeID: ch.ID, Frames: []string{frame}})
		req := httptest.NewRequest("POST", "/api/v1/liveness/verify", bytes.NewBuffer(payload))
		req.Header.Set("Content-Type", "application/json")

		resp, err := fix.app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, 200, resp.StatusCode)

		var verdict domain.LivenessVerdict
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&verdict))
		assert.Equal(t, domain.LivenessFail, verdict.Status)
		assert.Contains(t, verdict.Message, "not enough frames")
	})
}

func TestLivenessDetectEndpoint(t *testing.T) {
	fix := newFixture(t)

	frame := base64.StdEncoding.EncodeToString(noisyPNG(t, 7))
	frames := make([]string, 12)
	for i := range frames {
		frames[i] = frame
	}

	payload, _ := json.Marshal(DetectRequest{Frames: frames, InitialBlinkCount: 1})
	req := httptest.NewRequest("POST", "/api/v1/liveness/detect", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := fix.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, 200, resp.StatusCode)

	var out DetectResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	assert.Equal(t, 12, out.FramesProcessed)
	assert.GreaterOrEqual(t, out.DetectionResults.Blinks, 1)
	assert.Len(t, out.DetectionResults.Orientations, 12)
	assert.True(t, out.DetectionResults.FaceDetected)
}
