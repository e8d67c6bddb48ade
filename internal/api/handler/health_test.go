package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthAllStagesLoaded(t *testing.T) {
	fix := newFixture(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	resp, err := fix.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)

	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.True(t, body.Stages.Detector.Loaded)
	assert.True(t, body.Stages.Matcher.Loaded)
	assert.True(t, body.Stages.OCR.Loaded)
	assert.True(t, body.Stages.Liveness.Loaded)
	assert.Equal(t, "local-detector", body.Stages.Detector.Name)
}
