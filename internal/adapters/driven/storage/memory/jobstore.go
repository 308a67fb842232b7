package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
)

// Ensure UploadJobStore implements the interface.
var _ driven.UploadJobStore = (*UploadJobStore)(nil)

// UploadJobStore is an in-memory implementation of driven.UploadJobStore.
// It backs upload history when the sqlite database cannot be opened.
type UploadJobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.UploadJob
}

// NewUploadJobStore creates a new in-memory job store.
func NewUploadJobStore() *UploadJobStore {
	return &UploadJobStore{
		jobs: make(map[string]domain.UploadJob),
	}
}

// Save stores or updates a job.
func (s *UploadJobStore) Save(_ context.Context, job domain.UploadJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

// Get retrieves a job by ID.
func (s *UploadJobStore) Get(_ context.Context, id string) (*domain.UploadJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

// List returns jobs by start time, newest first.
func (s *UploadJobStore) List(_ context.Context, limit int) ([]domain.UploadJob, error) {
	s.mu.RLock()
	result := make([]domain.UploadJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		result = append(result, job)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
