package driven

import (
	"context"

	"github.com/custodia-labs/recorder/internal/core/domain"
)

// StorageClient performs the upload HTTP calls. Failures are *domain.UploadError.
type StorageClient interface {
	// CreateFileEntry registers a file and returns its id and presigned upload URL.
	CreateFileEntry(ctx context.Context, accessToken, fileName string) (*domain.FileEntry, error)

	// UploadBinary PUTs the whole file to the presigned URL and returns the bytes sent.
	UploadBinary(ctx context.Context, uploadURL, filePath string) (int64, error)

	// CreateMetadata attaches call metadata to an uploaded file.
	CreateMetadata(ctx context.Context, accessToken, fileID string, meta domain.CallMetadata) error
}

// UploadJobStore records upload history.
type UploadJobStore interface {
	// Save creates or updates a job by ID.
	Save(ctx context.Context, job domain.UploadJob) error

	// Get retrieves a job by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.UploadJob, error)

	// List returns the most recent jobs first, at most limit (0 means all).
	List(ctx context.Context, limit int) ([]domain.UploadJob, error)
}
