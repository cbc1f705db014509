package domain

import (
	"context"
	"time"
)

// JobRepository defines durable persistence for job records. Implementations
// must be safe for concurrent readers and writers; it is the only shared
// mutable state between runners.
type JobRepository interface {
	// Create inserts a fresh queued record. Reusing an id yields
	// ErrDuplicateJob.
	Create(ctx context.Context, job *Job) error
	// Get returns the current record or ErrNotFound.
	Get(ctx context.Context, jobID string) (*Job, error)
	// UpdateStatus advances the record. Nil pointers leave the existing
	// column untouched. Records already in a terminal state are never
	// modified; attempting to do so yields ErrInvalidTransition.
	UpdateStatus(ctx context.Context, jobID string, status JobStatus, errDetail, resultRef *string, responsePayload []byte) error
	// ListSince returns records created at or after cutoff, newest first.
	// A zero cutoff returns everything.
	ListSince(ctx context.Context, cutoff time.Time) ([]Job, error)
}

// InstructionRepository persists instruction templates.
type InstructionRepository interface {
	Upsert(ctx context.Context, tpl *InstructionTemplate) (*InstructionTemplate, error)
	List(ctx context.Context) ([]InstructionTemplate, error)
	Delete(ctx context.Context, id string) error
}
