package domain

import "time"

// JobKind classifies which external generative operation a job drives. It is
// used for reporting and provider routing only and has no effect on the
// lifecycle.
type JobKind string

const (
	JobKindVideoGenerate    JobKind = "video_generate"
	JobKindImageVideo       JobKind = "image_video"
	JobKindImageGenerate    JobKind = "image_generate"
	JobKindSegmentation     JobKind = "segmentation"
	JobKindVirtualTryOn     JobKind = "virtual_try_on"
	JobKindProductRecontext JobKind = "product_recontext"
	JobKindVideoEdit        JobKind = "video_edit"
	JobKindVideoEditAdv     JobKind = "video_edit_advanced"
	JobKindImageEdit        JobKind = "image_edit"
)

// JobStatus enumerates job lifecycle states. Transitions advance strictly
// queued -> running -> completed|failed and never regress.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions may occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job tracks one generation request end to end. ID is the only external
// handle; ResultRef is set exactly when the job completed, ErrorDetail
// exactly when it failed.
type Job struct {
	ID              string
	Summary         string
	Kind            JobKind
	Status          JobStatus
	ResultRef       string
	ErrorDetail     string
	RequestPayload  []byte
	ResponsePayload []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
