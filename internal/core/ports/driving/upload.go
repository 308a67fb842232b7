package driving

import (
	"context"

	"github.com/custodia-labs/recorder/internal/core/domain"
)

// UploadObserver receives every status transition of an upload job,
// synchronously and in order.
type UploadObserver interface {
	Publish(status domain.UploadStatus)
}

// UploadRequest describes one upload.
type UploadRequest struct {
	FilePath    string
	AccessToken string
	Title       string
	Speakers    []string
}

// UploadService runs the three-step upload pipeline.
type UploadService interface {
	// Upload runs the pipeline to completion and returns the final job.
	// The returned error is the step failure, if any; the job status is
	// Failed in that case.
	Upload(ctx context.Context, req UploadRequest, observer UploadObserver) (*domain.UploadJob, error)

	// History lists recorded jobs, most recent first.
	History(ctx context.Context, limit int) ([]domain.UploadJob, error)
}
