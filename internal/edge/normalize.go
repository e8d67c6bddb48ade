package edge

// The legacy browser SDK delivers document images in several historical
// JSON shapes. They are normalized into one tagged payload here, in a
// single place, instead of scattering shape checks across handlers.

import (
	"strings"

	"github.com/Aman-Sigroha/kyc/internal/imaging"
)

// PayloadKind tags where a document's bytes came from.
type PayloadKind int

const (
	// PayloadMultipart means the bytes arrived as a multipart file part.
	PayloadMultipart PayloadKind = iota
	// PayloadBase64Nested means the bytes sat under pages[0].base64.
	PayloadBase64Nested
	// PayloadBase64Flat means the bytes sat under base64 or data.
	PayloadBase64Flat
)

// DocumentPayload is one normalized document image.
type DocumentPayload struct {
	Kind PayloadKind
	Type string
	Data []byte
}

// legacyPage is one page of a legacy document entry.
type legacyPage struct {
	Base64 string `json:"base64"`
}

// legacyDocument is one entry of the legacy verify body. The image is taken
// from Pages[0].Base64 when set, else Base64, else Data.
type legacyDocument struct {
	Type   string       `json:"type"`
	Base64 string       `json:"base64,omitempty"`
	Data   string       `json:"data,omitempty"`
	Pages  []legacyPage `json:"pages,omitempty"`
}

// LegacyVerifyRequest is the body of POST /v2/enduser/verify.
type LegacyVerifyRequest struct {
	Documents []legacyDocument `json:"documents"`
}

// frontIDTypes and selfieTypes are the historical type labels the SDK
// sends for each role.
var frontIDTypes = map[string]bool{
	"id_card":         true,
	"id-card":         true,
	"passport":        true,
	"drivers_license": true,
}

var selfieTypes = map[string]bool{
	"selfie": true,
	"face":   true,
}

// normalizeDocument decodes whichever base64 location the entry uses.
// Returns false when the entry carries no image at all.
func normalizeDocument(doc legacyDocument, maxBytes int64) (DocumentPayload, bool, error) {
	kind := PayloadBase64Flat
	encoded := ""

	switch {
	case len(doc.Pages) > 0 && strings.TrimSpace(doc.Pages[0].Base64) != "":
		kind = PayloadBase64Nested
		encoded = doc.Pages[0].Base64
	case strings.TrimSpace(doc.Base64) != "":
		encoded = doc.Base64
	case strings.TrimSpace(doc.Data) != "":
		encoded = doc.Data
	default:
		return DocumentPayload{}, false, nil
	}

	img, err := imaging.DecodeBase64(encoded, maxBytes)
	if err != nil {
		return DocumentPayload{}, false, err
	}

	return DocumentPayload{
		Kind: kind,
		Type: strings.ToLower(strings.TrimSpace(doc.Type)),
		Data: img.Bytes,
	}, true, nil
}

// ExtractPair pulls the front ID document and the selfie out of a legacy
// request. Either slot may come back nil when the request lacks it.
func ExtractPair(req LegacyVerifyRequest, maxBytes int64) (frontID, selfie *DocumentPayload, err error) {
	for _, doc := range req.Documents {
		payload, ok, err := normalizeDocument(doc, maxBytes)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}

		switch {
		case frontID == nil && frontIDTypes[payload.Type]:
			p := payload
			frontID = &p
		case selfie == nil && selfieTypes[payload.Type]:
			p := payload
			selfie = &p
		}
	}
	return frontID, selfie, nil
}
