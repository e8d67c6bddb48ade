package edge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// Client talks to the Inference Gateway over its canonical multipart and
// JSON interfaces.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Outcome is a raw inference-gateway response: the edge decides per
// endpoint how to translate status codes.
type Outcome struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// VerifyKYC submits an ID/selfie pair as canonical multipart.
func (c *Client) VerifyKYC(ctx context.Context, idImage, selfie []byte) (*Outcome, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writeImagePart(writer, "id_document", idImage); err != nil {
		return nil, err
	}
	if err := writeImagePart(writer, "selfie_image", selfie); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	return c.do(ctx, http.MethodPost, "/api/v1/kyc/verify", writer.FormDataContentType(), buf.Bytes())
}

// Forward relays a request body untouched to the given gateway path.
func (c *Client) Forward(ctx context.Context, method, path, contentType string, body []byte) (*Outcome, error) {
	return c.do(ctx, method, path, contentType, body)
}

// Health fetches the gateway readiness report.
func (c *Client) Health(ctx context.Context) (*Outcome, error) {
	return c.do(ctx, http.MethodGet, "/api/v1/health", "", nil)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) (*Outcome, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call inference gateway %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read inference gateway response: %w", err)
	}

	return &Outcome{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

// writeImagePart adds one file part with a sniffed image content type.
func writeImagePart(writer *multipart.Writer, field string, data []byte) error {
	contentType := http.DetectContentType(data)
	ext := "jpg"
	if contentType == "image/png" {
		ext = "png"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, field+"."+ext))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create part %s: %w", field, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write part %s: %w", field, err)
	}
	return nil
}
