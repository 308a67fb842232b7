package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driven"
)

// uploadJobStore implements driven.UploadJobStore.
type uploadJobStore struct {
	store *Store
}

var _ driven.UploadJobStore = (*uploadJobStore)(nil)

// Save creates or updates a job by ID.
func (s *uploadJobStore) Save(ctx context.Context, job domain.UploadJob) error {
	if job.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO uploads (id, file_path, title, size_bytes, file_id, phase, percent, reason, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			size_bytes = excluded.size_bytes,
			file_id = excluded.file_id,
			phase = excluded.phase,
			percent = excluded.percent,
			reason = excluded.reason,
			ended_at = excluded.ended_at
	`, job.ID, job.FilePath, job.Title, job.SizeBytes, job.FileID,
		int(job.Status.Phase), job.Status.Percent, job.Status.Reason,
		job.StartedAt.UTC(), nullTime(job.EndedAt))
	if err != nil {
		return fmt.Errorf("saving upload: %w", err)
	}
	return nil
}

// Get retrieves a job by ID.
func (s *uploadJobStore) Get(ctx context.Context, id string) (*domain.UploadJob, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, file_path, title, size_bytes, file_id, phase, percent, reason, started_at, ended_at
		FROM uploads WHERE id = ?
	`, id)
	return scanUploadJob(row)
}

// List returns the most recent jobs first.
func (s *uploadJobStore) List(ctx context.Context, limit int) ([]domain.UploadJob, error) {
	query := `
		SELECT id, file_path, title, size_bytes, file_id, phase, percent, reason, started_at, ended_at
		FROM uploads ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying uploads: %w", err)
	}
	defer rows.Close()

	var jobs []domain.UploadJob //nolint:prealloc // size unknown from query
	for rows.Next() {
		job, err := scanUploadJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating uploads: %w", err)
	}
	return jobs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUploadJob(row rowScanner) (*domain.UploadJob, error) {
	var job domain.UploadJob
	var phase int
	var endedAt sql.NullTime
	err := row.Scan(&job.ID, &job.FilePath, &job.Title, &job.SizeBytes, &job.FileID,
		&phase, &job.Status.Percent, &job.Status.Reason, &job.StartedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning upload: %w", err)
	}

	job.Status.Phase = domain.UploadPhase(phase)
	if job.Status.Phase == domain.UploadComplete {
		job.Status.FileID = job.FileID
	}
	if endedAt.Valid {
		job.EndedAt = endedAt.Time
	}
	return &job, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
