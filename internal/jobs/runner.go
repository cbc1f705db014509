package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/storage"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultPollTimeout  = 10 * time.Minute

	// Terminal record writes use their own deadline so a canceled job
	// context cannot leave the record stuck in running.
	terminalWriteTimeout = 10 * time.Second

	maxArtifactFetchBytes = 512 << 20
)

// ArtifactStore is the slice of storage.FileStore the runner needs.
type ArtifactStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}

// Runner drives exactly one job from queued to a terminal state. It never
// propagates an error to its goroutine: every failure mode ends in a single
// terminal record write.
type Runner struct {
	repo       domain.JobRepository
	store      ArtifactStore
	httpClient *http.Client
	logger     zerolog.Logger

	pollIntervals map[domain.JobKind]time.Duration
	pollTimeouts  map[domain.JobKind]time.Duration
}

// NewRunner builds a runner with per-kind poll schedules: video operations
// are polled slowly, image operations quickly.
func NewRunner(repo domain.JobRepository, store ArtifactStore, logger zerolog.Logger) *Runner {
	return &Runner{
		repo:       repo,
		store:      store,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
		pollIntervals: map[domain.JobKind]time.Duration{
			domain.JobKindVideoGenerate: 15 * time.Second,
			domain.JobKindImageVideo:    20 * time.Second,
			domain.JobKindVideoEdit:     15 * time.Second,
			domain.JobKindVideoEditAdv:  15 * time.Second,
			domain.JobKindImageGenerate: 2 * time.Second,
		},
		pollTimeouts: map[domain.JobKind]time.Duration{
			domain.JobKindVideoGenerate: 30 * time.Minute,
			domain.JobKindImageVideo:    30 * time.Minute,
			domain.JobKindVideoEdit:     30 * time.Minute,
			domain.JobKindVideoEditAdv:  30 * time.Minute,
		},
	}
}

// Run executes the full lifecycle of one job. Submission failures go
// straight from queued to failed; the record only enters running once the
// external service has accepted the operation.
func (r *Runner) Run(ctx context.Context, client Client, jobID string, params domain.JobParams) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Str("job_id", jobID).Msgf("runner: panic: %v", rec)
			r.fail(jobID, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	if client == nil {
		r.fail(jobID, "no operation client configured")
		return
	}

	handle, err := client.Submit(ctx, params)
	if err != nil {
		r.fail(jobID, err.Error())
		return
	}

	if err := r.transition(jobID, domain.JobStatusRunning); err != nil {
		// The poll loop still runs; the terminal write below is what the
		// caller ultimately observes.
		r.logger.Warn().Err(err).Str("job_id", jobID).Msg("runner: mark running failed")
	}

	interval := r.interval(params.Kind())
	deadline := time.Now().Add(r.timeout(params.Kind()))
	for {
		select {
		case <-ctx.Done():
			r.fail(jobID, "canceled before completion: "+ctx.Err().Error())
			return
		case <-time.After(interval):
		}

		status, err := client.Poll(ctx, handle)
		if err != nil {
			r.fail(jobID, err.Error())
			return
		}
		if status.Done {
			r.resolve(ctx, jobID, status)
			return
		}
		if time.Now().After(deadline) {
			r.fail(jobID, fmt.Sprintf("timed out after %s waiting for operation", r.timeout(params.Kind())))
			return
		}
	}
}

// resolve converts a finished poll result into the terminal record.
func (r *Runner) resolve(ctx context.Context, jobID string, status PollStatus) {
	if status.Err != nil {
		r.fail(jobID, status.Err.Error())
		return
	}
	if status.Artifact == nil {
		r.fail(jobID, "operation finished without error but no artifact was produced")
		return
	}

	artifact := status.Artifact
	data := artifact.Data
	if len(data) == 0 && artifact.URL != "" {
		fetched, err := r.fetchArtifact(ctx, artifact.URL)
		if err != nil {
			r.fail(jobID, "fetch artifact: "+err.Error())
			return
		}
		data = fetched
	}
	if len(data) == 0 {
		r.fail(jobID, "operation produced an empty artifact")
		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), terminalWriteTimeout)
	defer cancel()
	key, err := r.store.Write(writeCtx, storage.ArtifactKey(jobID, artifact.MIME), data)
	if err != nil {
		r.fail(jobID, "persist artifact: "+err.Error())
		return
	}

	response, _ := json.Marshal(map[string]any{
		"mime":       artifact.MIME,
		"bytes":      len(data),
		"source_url": artifact.URL,
	})
	if err := r.update(jobID, domain.JobStatusCompleted, nil, &key, response); err != nil {
		r.logger.Error().Err(err).Str("job_id", jobID).Msg("runner: persist completion failed")
		return
	}
	r.logger.Info().Str("job_id", jobID).Str("result_ref", key).Msg("runner: job completed")
}

func (r *Runner) fetchArtifact(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from artifact fetch", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactFetchBytes))
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *Runner) interval(kind domain.JobKind) time.Duration {
	if d, ok := r.pollIntervals[kind]; ok {
		return d
	}
	return defaultPollInterval
}

func (r *Runner) timeout(kind domain.JobKind) time.Duration {
	if d, ok := r.pollTimeouts[kind]; ok {
		return d
	}
	return defaultPollTimeout
}

func (r *Runner) fail(jobID, detail string) {
	if err := r.update(jobID, domain.JobStatusFailed, &detail, nil, nil); err != nil {
		r.logger.Error().Err(err).Str("job_id", jobID).Msg("runner: persist failure failed")
		return
	}
	r.logger.Info().Str("job_id", jobID).Str("detail", detail).Msg("runner: job failed")
}

func (r *Runner) transition(jobID string, status domain.JobStatus) error {
	return r.update(jobID, status, nil, nil, nil)
}

func (r *Runner) update(jobID string, status domain.JobStatus, errDetail, resultRef *string, responsePayload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), terminalWriteTimeout)
	defer cancel()
	return r.repo.UpdateStatus(ctx, jobID, status, errDetail, resultRef, responsePayload)
}
