package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8((x*31 + y*17) % 256)
			img.Set(x, y, color.RGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8((x + y) % 256)
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	t.Run("png", func(t *testing.T) {
		data := encodePNG(t, 64, 48)

		img, err := Decode(data, 0)
		require.NoError(t, err)

		assert.Equal(t, "image/png", img.ContentType)
		assert.Equal(t, 64, img.Width)
		assert.Equal(t, 48, img.Height)
		assert.Equal(t, data, img.Bytes)
	})

	t.Run("jpeg", func(t *testing.T) {
		img, err := Decode(encodeJPEG(t, 32, 32), 0)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", img.ContentType)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Decode(nil, 0)
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Decode([]byte("definitely not an image"), 0)
		assert.ErrorIs(t, err, ErrUndecodable)
	})
}

func TestDecodeSizeCap(t *testing.T) {
	data := encodePNG(t, 64, 64)

	t.Run("exactly at cap is accepted", func(t *testing.T) {
		img, err := Decode(data, int64(len(data)))
		require.NoError(t, err)
		assert.NotNil(t, img)
	})

	t.Run("one byte over cap is rejected", func(t *testing.T) {
		_, err := Decode(data, int64(len(data))-1)
		assert.ErrorIs(t, err, ErrTooLarge)
	})
}

func TestDecodeBase64(t *testing.T) {
	data := encodePNG(t, 16, 16)
	encoded := base64.StdEncoding.EncodeToString(data)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain base64", input: encoded},
		{name: "data url prefix", input: "data:image/png;base64," + encoded},
		{name: "whitespace padded", input: "  " + encoded + "  "},
		{name: "empty", input: "", wantErr: true},
		{name: "bare prefix", input: "data:image/png;base64,", wantErr: true},
		{name: "invalid base64", input: "!!!not-base64!!!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeBase64(tt.input, 0)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 16, img.Width)
		})
	}
}

func TestFrameSeq(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(encodePNG(t, 16, 16))

	t.Run("iterates in order and terminates", func(t *testing.T) {
		seq := NewFrameSeq([]string{encoded, encoded, encoded}, 0)
		assert.Equal(t, 3, seq.Len())

		count := 0
		for {
			img, err := seq.Next()
			require.NoError(t, err)
			if img == nil {
				break
			}
			count++
		}
		assert.Equal(t, 3, count)
	})

	t.Run("stops at undecodable frame", func(t *testing.T) {
		seq := NewFrameSeq([]string{encoded, "garbage"}, 0)

		img, err := seq.Next()
		require.NoError(t, err)
		require.NotNil(t, img)

		_, err = seq.Next()
		assert.Error(t, err)
	})

	t.Run("empty sequence", func(t *testing.T) {
		seq := NewFrameSeq(nil, 0)
		img, err := seq.Next()
		require.NoError(t, err)
		assert.Nil(t, img)
	})
}
