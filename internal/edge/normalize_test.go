package edge

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeDocumentLocations(t *testing.T) {
	data := testImage(t)
	encoded := base64.StdEncoding.EncodeToString(data)

	tests := []struct {
		name     string
		doc      legacyDocument
		wantKind PayloadKind
	}{
		{
			name:     "nested under pages",
			doc:      legacyDocument{Type: "id_card", Pages: []legacyPage{{Base64: encoded}}},
			wantKind: PayloadBase64Nested,
		},
		{
			name:     "flat base64",
			doc:      legacyDocument{Type: "id_card", Base64: encoded},
			wantKind: PayloadBase64Flat,
		},
		{
			name:     "flat data field",
			doc:      legacyDocument{Type: "id_card", Data: encoded},
			wantKind: PayloadBase64Flat,
		},
		{
			name:     "data url prefix",
			doc:      legacyDocument{Type: "id_card", Base64: "data:image/png;base64," + encoded},
			wantKind: PayloadBase64Flat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, ok, err := normalizeDocument(tt.doc, 0)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, payload.Kind)
			assert.Equal(t, data, payload.Data)
			assert.Equal(t, "id_card", payload.Type)
		})
	}
}

func TestNormalizeDocumentEdgeCases(t *testing.T) {
	t.Run("no image anywhere", func(t *testing.T) {
		_, ok, err := normalizeDocument(legacyDocument{Type: "id_card"}, 0)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, _, err := normalizeDocument(legacyDocument{Type: "id_card", Base64: "!!!"}, 0)
		assert.Error(t, err)
	})

	t.Run("pages take precedence over flat", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString(testImage(t))
		doc := legacyDocument{
			Type:   "passport",
			Base64: encoded,
			Pages:  []legacyPage{{Base64: encoded}},
		}
		payload, ok, err := normalizeDocument(doc, 0)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, PayloadBase64Nested, payload.Kind)
	})
}

func TestExtractPair(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(testImage(t))

	t.Run("id card and selfie", func(t *testing.T) {
		req := LegacyVerifyRequest{Documents: []legacyDocument{
			{Type: "id_card", Pages: []legacyPage{{Base64: encoded}}},
			{Type: "selfie", Base64: encoded},
		}}

		frontID, selfie, err := ExtractPair(req, 0)
		require.NoError(t, err)
		require.NotNil(t, frontID)
		require.NotNil(t, selfie)
		assert.Equal(t, "id_card", frontID.Type)
		assert.Equal(t, "selfie", selfie.Type)
	})

	t.Run("historical type labels", func(t *testing.T) {
		for _, idType := range []string{"passport", "drivers_license", "id-card", "ID_CARD"} {
			req := LegacyVerifyRequest{Documents: []legacyDocument{
				{Type: idType, Base64: encoded},
				{Type: "face", Base64: encoded},
			}}

			frontID, selfie, err := ExtractPair(req, 0)
			require.NoError(t, err)
			assert.NotNil(t, frontID, "type %s", idType)
			assert.NotNil(t, selfie)
		}
	})

	t.Run("unrelated documents are ignored", func(t *testing.T) {
		req := LegacyVerifyRequest{Documents: []legacyDocument{
			{Type: "utility_bill", Base64: encoded},
		}}

		frontID, selfie, err := ExtractPair(req, 0)
		require.NoError(t, err)
		assert.Nil(t, frontID)
		assert.Nil(t, selfie)
	})

	t.Run("first matching document wins", func(t *testing.T) {
		req := LegacyVerifyRequest{Documents: []legacyDocument{
			{Type: "id_card", Base64: encoded},
			{Type: "passport", Base64: encoded},
			{Type: "selfie", Base64: encoded},
		}}

		frontID, selfie, err := ExtractPair(req, 0)
		require.NoError(t, err)
		require.NotNil(t, frontID)
		assert.Equal(t, "id_card", frontID.Type)
		require.NotNil(t, selfie)
	})
}
