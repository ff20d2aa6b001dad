package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

// Client calls a remote video metadata service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for the service rooted at baseURL. A zero
// timeout leaves requests bounded only by their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Metadata uploads f and returns the container fields the service read.
func (c *Client) Metadata(ctx context.Context, f *core.UploadedFile) (Fields, error) {
	resp, err := c.post(ctx, "read", MetadataPath, f, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body MetadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &core.RemoteServiceError{Op: "read", Status: resp.StatusCode, Message: "invalid response body", Cause: err}
	}
	if !body.Success {
		return nil, &core.RemoteServiceError{Op: "read", Status: resp.StatusCode, Message: "service reported failure"}
	}
	return body.Metadata, nil
}

// Scrub uploads f with the selected field names and returns the cleaned
// bytes. The service currently strips every container field.
func (c *Client) Scrub(ctx context.Context, f *core.UploadedFile, fields []string) ([]byte, error) {
	if fields == nil {
		fields = []string{}
	}
	sel, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	resp, err := c.post(ctx, "scrub", ScrubPath, f, map[string]string{FormFields: string(sel)})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.RemoteServiceError{Op: "scrub", Status: resp.StatusCode, Message: "reading response", Cause: err}
	}
	return data, nil
}

// post sends a multipart upload and returns the response only for 200.
func (c *Client) post(ctx context.Context, op, path string, f *core.UploadedFile, extra map[string]string) (*http.Response, error) {
	body, contentType, err := encodeUpload(f, extra)
	if err != nil {
		return nil, &core.RemoteServiceError{Op: op, Message: "encoding upload", Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, &core.RemoteServiceError{Op: op, Cause: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &core.RemoteServiceError{Op: op, Cause: err}
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()

	rerr := &core.RemoteServiceError{Op: op, Status: resp.StatusCode}
	var eb ErrorResponse
	if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb) == nil {
		rerr.Message, rerr.Details = eb.Error, eb.Details
	}
	if rerr.Message == "" {
		rerr.Message = http.StatusText(resp.StatusCode)
	}
	return nil, rerr
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeUpload(f *core.UploadedFile, extra map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FormFile, quoteEscaper.Replace(f.Name)))
	mediaType := f.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	h.Set("Content-Type", mediaType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, "", err
	}

	if !f.LastModified.IsZero() {
		if err := mw.WriteField(FormLastModified, strconv.FormatInt(f.LastModified.UnixMilli(), 10)); err != nil {
			return nil, "", err
		}
	}
	for k, v := range extra {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
