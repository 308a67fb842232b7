package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
	"github.com/custodia-labs/recorder/internal/core/ports/driving"
	"github.com/custodia-labs/recorder/internal/logger"
)

// Ensure UploadPipeline implements the interface.
var _ driving.UploadService = (*UploadPipeline)(nil)

// Pipeline step names reported in UploadError.Step.
const (
	StepCreateFile     = "create_file"
	StepUploadBinary   = "upload_binary"
	StepCreateMetadata = "create_metadata"
)

// UploadPipeline runs create-file, upload-binary and create-metadata in order.
// Steps are not retried; the first failure ends the job.
type UploadPipeline struct {
	client   driven.StorageClient
	jobs     driven.UploadJobStore
	settings domain.StorageSettings
	now      func() time.Time
	log      logger.Logger
}

// NewUploadPipeline creates a pipeline. jobs may be nil to skip history.
func NewUploadPipeline(client driven.StorageClient, jobs driven.UploadJobStore, settings domain.StorageSettings) *UploadPipeline {
	if settings.Provider == "" {
		settings.Provider = domain.DefaultProvider
	}
	return &UploadPipeline{
		client:   client,
		jobs:     jobs,
		settings: settings,
		now:      time.Now,
		log:      logger.Named("upload"),
	}
}

// Upload runs the pipeline. Every transition is published to observer
// before the next step starts.
func (p *UploadPipeline) Upload(
	ctx context.Context,
	req driving.UploadRequest,
	observer driving.UploadObserver,
) (*domain.UploadJob, error) {
	job := &domain.UploadJob{
		ID:        uuid.NewString(),
		FilePath:  req.FilePath,
		Title:     req.Title,
		StartedAt: p.now(),
	}
	if job.Title == "" {
		job.Title = domain.DefaultTitle(job.StartedAt)
	}

	publish := func(status domain.UploadStatus) {
		job.Status = status
		if observer != nil {
			observer.Publish(status)
		}
	}

	publish(domain.StatusIdle())
	p.record(ctx, job)

	if req.AccessToken == "" {
		return p.fail(ctx, job, publish, StepCreateFile, domain.NewUploadError(domain.UploadErrInvalidToken, "empty access token"))
	}

	publish(domain.StatusCreatingFile())
	entry, err := p.client.CreateFileEntry(ctx, req.AccessToken, job.FileName())
	if err != nil {
		return p.fail(ctx, job, publish, StepCreateFile, err)
	}
	job.FileID = entry.FileID
	p.log.Debug("file entry %s created for %s", entry.FileID, job.FileName())

	publish(domain.StatusUploading(0))
	size, err := p.client.UploadBinary(ctx, entry.UploadURL, job.FilePath)
	if err != nil {
		return p.fail(ctx, job, publish, StepUploadBinary, err)
	}
	job.SizeBytes = size
	publish(domain.StatusUploading(100))

	publish(domain.StatusCreatingMetadata())
	speakers := req.Speakers
	if speakers == nil {
		speakers = []string{}
	}
	meta := domain.CallMetadata{
		Title:      job.Title,
		RecordedAt: p.now(),
		Provider:   p.settings.Provider,
		IsPrivate:  p.settings.Private,
		Speakers:   speakers,
	}
	if err := p.client.CreateMetadata(ctx, req.AccessToken, entry.FileID, meta); err != nil {
		return p.fail(ctx, job, publish, StepCreateMetadata, err)
	}

	publish(domain.StatusComplete(entry.FileID))
	job.EndedAt = p.now()
	p.record(ctx, job)
	p.log.Info("uploaded %s as %s", job.FileName(), entry.FileID)
	return job, nil
}

// History lists recorded jobs, most recent first.
func (p *UploadPipeline) History(ctx context.Context, limit int) ([]domain.UploadJob, error) {
	if p.jobs == nil {
		return nil, nil
	}
	return p.jobs.List(ctx, limit)
}

func (p *UploadPipeline) fail(
	ctx context.Context,
	job *domain.UploadJob,
	publish func(domain.UploadStatus),
	step string,
	err error,
) (*domain.UploadJob, error) {
	var uerr *domain.UploadError
	if errors.As(err, &uerr) && uerr.Step == "" {
		uerr.Step = step
	}
	publish(domain.StatusFailed(err.Error()))
	job.EndedAt = p.now()
	p.record(ctx, job)
	p.log.Warn("%s failed for %s: %v", step, job.FileName(), err)
	return job, err
}

// record saves the job to history on a best-effort basis.
func (p *UploadPipeline) record(ctx context.Context, job *domain.UploadJob) {
	if p.jobs == nil {
		return
	}
	if err := p.jobs.Save(context.WithoutCancel(ctx), *job); err != nil {
		p.log.Warn("record upload %s: %v", job.ID, err)
	}
}

// StatusCell is an observable holding the latest status of one job.
// The pipeline writes it; a monitor reads it at its own cadence.
type StatusCell struct {
	mu     sync.Mutex
	status domain.UploadStatus
	seen   bool
}

// Ensure StatusCell implements the interface.
var _ driving.UploadObserver = (*StatusCell)(nil)

// Publish implements driving.UploadObserver.
func (c *StatusCell) Publish(status domain.UploadStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
	c.seen = true
}

// Load returns the latest status and whether anything was published yet.
func (c *StatusCell) Load() (domain.UploadStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.seen
}
