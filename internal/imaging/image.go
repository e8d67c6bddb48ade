package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

var (
	// ErrUndecodable means the bytes are not a JPEG or PNG raster.
	ErrUndecodable = errors.New("image is not a decodable JPEG or PNG")
	// ErrTooLarge means the bytes exceed the configured upload cap.
	ErrTooLarge = errors.New("image exceeds the size limit")
	// ErrEmpty means no bytes were supplied.
	ErrEmpty = errors.New("image is empty")
)

var allowedFormats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// Image is a decoded raster together with its original bytes and content
// type. It lives for the duration of one request; stages receive it as a
// borrowed view and must not retain it past the call.
type Image struct {
	Raster      image.Image
	Bytes       []byte
	ContentType string
	Width       int
	Height      int
}

// Decode validates and decodes raw image bytes. maxBytes <= 0 disables the
// size check.
func Decode(data []byte, maxBytes int64) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	raster, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	contentType, ok := allowedFormats[format]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported format %q", ErrUndecodable, format)
	}

	bounds := raster.Bounds()
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return nil, fmt.Errorf("%w: degenerate dimensions", ErrUndecodable)
	}

	return &Image{
		Raster:      raster,
		Bytes:       data,
		ContentType: contentType,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}, nil
}

// DecodeBase64 decodes a base64 payload into an Image. Data-URL prefixes
// ("data:image/jpeg;base64,") are stripped first.
func DecodeBase64(encoded string, maxBytes int64) (*Image, error) {
	data, err := decodeBase64Bytes(encoded)
	if err != nil {
		return nil, err
	}
	return Decode(data, maxBytes)
}

func decodeBase64Bytes(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		if idx := strings.Index(encoded, ","); idx >= 0 {
			encoded = encoded[idx+1:]
		}
	}
	if encoded == "" {
		return nil, ErrEmpty
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Browsers occasionally emit the URL-safe alphabet.
		data, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64", ErrUndecodable)
		}
	}
	return data, nil
}
