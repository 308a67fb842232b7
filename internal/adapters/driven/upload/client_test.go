package upload

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recorder/internal/core/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", WithHTTPClient(srv.Client()))
}

func TestCreateFileEntry(t *testing.T) {
	tests := []struct {
		fileName string
		fileType string
	}{
		{"standup.mp4", "mp4"},
		{"memo.M4A", "mp3"},
		{"notes.flac", "mp3"},
		{"capture.mov", "mp4"},
		{"noext", "mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/files/v2", r.URL.Path)
				assert.Equal(t, "raw-token", r.Header.Get("Authorization"))
				assert.Equal(t, "application/json", r.Header.Get("Accept"))
				require.NoError(t, r.ParseMultipartForm(1<<20))
				assert.Equal(t, tt.fileName, r.FormValue("name"))
				assert.Equal(t, tt.fileType, r.FormValue("file-type"))

				_ = json.NewEncoder(w).Encode(map[string]string{"file_id": "f-1", "upload_url": "https://s3.example.com/put"})
			})

			entry, err := c.CreateFileEntry(context.Background(), "raw-token", tt.fileName)

			require.NoError(t, err)
			assert.Equal(t, "f-1", entry.FileID)
			assert.Equal(t, "https://s3.example.com/put", entry.UploadURL)
		})
	}
}

func TestCreateFileEntry_HTTPError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("token expired"))
	})

	_, err := c.CreateFileEntry(context.Background(), "t", "a.mp4")

	var uerr *domain.UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, domain.UploadErrNetwork, uerr.Kind)
	assert.Equal(t, "network error: HTTP 401: token expired", err.Error())
}

func TestCreateFileEntry_BadJSON(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	_, err := c.CreateFileEntry(context.Background(), "t", "a.mp4")

	var uerr *domain.UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, domain.UploadErrInvalidResponse, uerr.Kind)
}

func TestUploadBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.mp4")
	content := []byte("0123456789abcdef")
	require.NoError(t, os.WriteFile(path, content, 0600))

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/presigned", r.URL.Path)
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		assert.Equal(t, int64(len(content)), r.ContentLength)
		assert.Empty(t, r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, content, body)
	})

	n, err := c.UploadBinary(context.Background(), c.baseURL+"/presigned", path)

	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
}

func TestUploadBinary_MissingFile(t *testing.T) {
	c := NewClient("http://unused")

	_, err := c.UploadBinary(context.Background(), "http://unused/put", filepath.Join(t.TempDir(), "missing.mp4"))

	var uerr *domain.UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, domain.UploadErrIO, uerr.Kind)
}

func TestUploadBinary_HTTPError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("SignatureDoesNotMatch"))
	})

	_, err := c.UploadBinary(context.Background(), c.baseURL+"/put", path)

	assert.EqualError(t, err, "network error: HTTP 403: SignatureDoesNotMatch")
}

func TestCreateMetadata(t *testing.T) {
	recorded := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/v2/f-1/call", r.URL.Path)
		assert.Equal(t, "raw-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Weekly sync", body["title"])
		assert.Equal(t, "2025-06-01T10:30:00Z", body["recorded_datetime"])
		assert.Equal(t, "Talka Cap Pro", body["provider"])
		assert.Equal(t, false, body["is_private"])
		assert.Equal(t, []any{}, body["speakers"])
		assert.Equal(t, "f-1", body["file_id"])
		assert.NotContains(t, body, "webcam_primary_user")
		w.WriteHeader(http.StatusCreated)
	})

	err := c.CreateMetadata(context.Background(), "raw-token", "f-1", domain.CallMetadata{
		Title:      "Weekly sync",
		RecordedAt: recorded,
		Provider:   domain.DefaultProvider,
	})

	require.NoError(t, err)
}

func TestCreateMetadata_HTTPError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"bad title"}`))
	})

	err := c.CreateMetadata(context.Background(), "t", "f-1", domain.CallMetadata{})

	assert.EqualError(t, err, `network error: HTTP 422: {"detail":"bad title"}`)
}
