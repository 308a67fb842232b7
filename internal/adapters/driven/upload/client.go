// Package upload implements the storage service HTTP client used by the
// upload pipeline.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.StorageClient = (*Client)(nil)

const maxErrorBody = 64 << 10

// Client talks to the storage service. The access token is sent as the
// raw Authorization header value, without a scheme.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// NewClient creates a storage client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No overall timeout: recordings can take minutes to PUT.
		http: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateFileEntry registers fileName and returns its id and upload URL.
func (c *Client) CreateFileEntry(ctx context.Context, accessToken, fileName string) (*domain.FileEntry, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("name", fileName); err != nil {
		return nil, domain.NewUploadError(domain.UploadErrIO, "build form: %v", err)
	}
	if err := form.WriteField("file-type", domain.InferFileType(fileName)); err != nil {
		return nil, domain.NewUploadError(domain.UploadErrIO, "build form: %v", err)
	}
	if err := form.Close(); err != nil {
		return nil, domain.NewUploadError(domain.UploadErrIO, "build form: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/v2", &body)
	if err != nil {
		return nil, domain.NewUploadError(domain.UploadErrNetwork, "create request: %v", err)
	}
	req.Header.Set("Authorization", accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var entry domain.FileEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return nil, domain.NewUploadError(domain.UploadErrInvalidResponse, "decode file entry: %v", err)
	}
	if entry.FileID == "" || entry.UploadURL == "" {
		return nil, domain.NewUploadError(domain.UploadErrInvalidResponse, "file entry is missing file_id or upload_url")
	}
	return &entry, nil
}

// UploadBinary reads filePath fully and PUTs it to uploadURL.
func (c *Client) UploadBinary(ctx context.Context, uploadURL, filePath string) (int64, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return 0, domain.NewUploadError(domain.UploadErrIO, "%v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return 0, domain.NewUploadError(domain.UploadErrNetwork, "create request: %v", err)
	}
	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return int64(len(data)), nil
}

// callMetadataRequest is the wire body of the metadata call.
type callMetadataRequest struct {
	Title             string   `json:"title,omitempty"`
	RecordedDatetime  string   `json:"recorded_datetime,omitempty"`
	Provider          string   `json:"provider,omitempty"`
	WebcamPrimaryUser *int     `json:"webcam_primary_user,omitempty"`
	IsPrivate         bool     `json:"is_private"`
	Speakers          []string `json:"speakers"`
	FileID            string   `json:"file_id"`
}

// CreateMetadata attaches meta to fileID.
func (c *Client) CreateMetadata(ctx context.Context, accessToken, fileID string, meta domain.CallMetadata) error {
	body := callMetadataRequest{
		Title:     meta.Title,
		Provider:  meta.Provider,
		IsPrivate: meta.IsPrivate,
		Speakers:  meta.Speakers,
		FileID:    fileID,
	}
	if body.Speakers == nil {
		body.Speakers = []string{}
	}
	if !meta.RecordedAt.IsZero() {
		body.RecordedDatetime = meta.RecordedAt.UTC().Format(time.RFC3339)
	}
	if meta.WebcamPrimaryUser {
		one := 1
		body.WebcamPrimaryUser = &one
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return domain.NewUploadError(domain.UploadErrIO, "encode metadata: %v", err)
	}

	endpoint := c.baseURL + "/files/v2/" + url.PathEscape(fileID) + "/call"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.NewUploadError(domain.UploadErrNetwork, "create request: %v", err)
	}
	req.Header.Set("Authorization", accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// do sends req and turns transport failures and non-2xx answers into
// Network upload errors carrying "HTTP <status>: <body>".
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.NewUploadError(domain.UploadErrNetwork, "%v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, domain.NewUploadError(domain.UploadErrNetwork, "HTTP %d: %s", resp.StatusCode, text)
	}
	return resp, nil
}
