package jobs

import (
	"context"
	"fmt"

	"server/internal/domain"
)

// Handle identifies an operation in flight at the external service.
type Handle struct {
	// Name is the provider-side operation name used for polling.
	Name string
	// Immediate carries the outcome of operations that resolve at submit
	// time; Poll answers from it without a remote round trip.
	Immediate *PollStatus
}

// Artifact is the produced output of a completed operation. Either Data is
// populated inline or URL points at a remote object the runner must fetch
// separately.
type Artifact struct {
	Data []byte
	URL  string
	MIME string
}

// PollStatus reports the observed state of an in-flight operation.
type PollStatus struct {
	Done     bool
	Artifact *Artifact
	Err      *OperationError
}

// Client is the collaborator that talks to the external generative service.
// Implementations live under internal/providers.
type Client interface {
	// Submit starts the operation described by params. A returned error
	// means the service rejected the work outright.
	Submit(ctx context.Context, params domain.JobParams) (Handle, error)
	// Poll reports the current state of a previously submitted operation.
	Poll(ctx context.Context, h Handle) (PollStatus, error)
}

// SubmissionError marks a rejection at submit time. The runner records the
// job as failed without it ever entering the running state.
type SubmissionError struct {
	Cause error
}

func (e *SubmissionError) Error() string { return "submission rejected: " + e.Cause.Error() }
func (e *SubmissionError) Unwrap() error { return e.Cause }

// OperationError is a business failure reported by the external service for
// an operation it had accepted.
type OperationError struct {
	Code    int
	Message string
}

func (e *OperationError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("operation failed: code %d: %s", e.Code, e.Message)
	}
	return "operation failed: " + e.Message
}
