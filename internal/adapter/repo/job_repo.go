package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"server/internal/domain"
)

const uniqueViolationCode = "23505"

// JobRepositoryPG implements domain.JobRepository backed by PostgreSQL.
// Postgres row-level locking serializes concurrent updates to the same
// record; the terminal-state guard lives in the UPDATE predicate.
type JobRepositoryPG struct {
	db DBTX
}

// NewJobRepository creates a job repository over the given query surface.
func NewJobRepository(db DBTX) *JobRepositoryPG {
	return &JobRepositoryPG{db: db}
}

// Create inserts a fresh queued record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, summary, kind, status, request_payload, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6);
`
	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, query,
		job.ID,
		job.Summary,
		job.Kind,
		job.Status,
		nullableBytes(job.RequestPayload),
		createdAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrDuplicateJob
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// Get fetches a job by its identifier.
func (r *JobRepositoryPG) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
SELECT id, summary, kind, status, result_ref, error_detail, request_payload, response_payload, created_at, updated_at
FROM jobs
WHERE id = $1;
`
	job, err := scanJob(r.db.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// UpdateStatus advances the record. The WHERE clause keeps terminal records
// immutable; a zero-row update is disambiguated into ErrNotFound or
// ErrInvalidTransition with a follow-up existence check.
func (r *JobRepositoryPG) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, errDetail, resultRef *string, responsePayload []byte) error {
	query := `
UPDATE jobs
SET status = $2,
    updated_at = NOW(),
    error_detail = COALESCE($3, error_detail),
    result_ref = COALESCE($4, result_ref),
    response_payload = COALESCE($5, response_payload)
WHERE id = $1
  AND status NOT IN ('completed', 'failed');
`
	tag, err := r.db.Exec(ctx, query, jobID, status, errDetail, resultRef, nullableBytes(responsePayload))
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, jobID).Scan(&exists); err != nil {
			return fmt.Errorf("update job status: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

// ListSince returns records created at or after cutoff, newest first. Each
// call is a fresh query, not a live cursor.
func (r *JobRepositoryPG) ListSince(ctx context.Context, cutoff time.Time) ([]domain.Job, error) {
	query := `
SELECT id, summary, kind, status, result_ref, error_detail, request_payload, response_payload, created_at, updated_at
FROM jobs
WHERE created_at >= $1
ORDER BY created_at DESC, id DESC;
`
	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job       domain.Job
		resultRef *string
		errDetail *string
	)
	if err := row.Scan(
		&job.ID,
		&job.Summary,
		&job.Kind,
		&job.Status,
		&resultRef,
		&errDetail,
		&job.RequestPayload,
		&job.ResponsePayload,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if resultRef != nil {
		job.ResultRef = *resultRef
	}
	if errDetail != nil {
		job.ErrorDetail = *errDetail
	}
	return &job, nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
