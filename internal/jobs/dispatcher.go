package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

// ErrShuttingDown is returned for dispatches that arrive after Shutdown.
var ErrShuttingDown = errors.New("dispatcher is shutting down")

// Dispatcher registers new jobs and launches one runner goroutine per job.
// The record is created synchronously, so a caller that polls the returned
// id immediately never observes a missing record. Runner handles are
// retained so shutdown can cancel in-flight work.
type Dispatcher struct {
	repo    domain.JobRepository
	clients *ClientRef
	runner  *Runner
	logger  zerolog.Logger

	mu       sync.Mutex
	lastTick int64
	seq      uint64
	tasks    map[string]context.CancelFunc
	closed   bool

	wg sync.WaitGroup
}

// NewDispatcher wires a dispatcher over the record store and runner.
func NewDispatcher(repo domain.JobRepository, clients *ClientRef, runner *Runner, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:    repo,
		clients: clients,
		runner:  runner,
		logger:  logger,
		tasks:   map[string]context.CancelFunc{},
	}
}

// Dispatch validates params, persists the queued record, and starts a
// runner for it. Validation failures surface synchronously and are never
// recorded as jobs.
func (d *Dispatcher) Dispatch(ctx context.Context, params domain.JobParams) (string, error) {
	if params == nil {
		return "", domain.ErrInvalidParams
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", ErrShuttingDown
	}
	d.mu.Unlock()
	if strings.TrimSpace(params.Summary()) == "" {
		return "", domain.ErrInvalidPrompt
	}

	payload, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode request payload: %w", err)
	}
	id := d.nextID(params.Kind())
	job := &domain.Job{
		ID:             id,
		Summary:        params.Summary(),
		Kind:           params.Kind(),
		Status:         domain.JobStatusQueued,
		RequestPayload: payload,
		CreatedAt:      time.Now().UTC(),
	}
	if err := d.repo.Create(ctx, job); err != nil {
		return "", err
	}

	client := d.clients.Load()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		// Shutdown raced the record creation; close out the stranded record.
		detail := ErrShuttingDown.Error()
		if err := d.repo.UpdateStatus(ctx, id, domain.JobStatusFailed, &detail, nil, nil); err != nil {
			d.logger.Warn().Err(err).Str("job_id", id).Msg("dispatch: close stranded record failed")
		}
		return "", ErrShuttingDown
	}
	runCtx, cancel := context.WithCancel(context.Background())
	d.tasks[id] = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer d.release(id)
		d.runner.Run(runCtx, client, id, params)
	}()

	d.logger.Info().Str("job_id", id).Str("kind", string(params.Kind())).Msg("dispatch: job queued")
	return id, nil
}

// DispatchBatch starts one independent job per parameter set. Jobs already
// dispatched keep running if a later item fails validation.
func (d *Dispatcher) DispatchBatch(ctx context.Context, batch []domain.JobParams) ([]string, error) {
	ids := make([]string, 0, len(batch))
	for _, params := range batch {
		id, err := d.Dispatch(ctx, params)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Active reports how many runners are currently in flight.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

// Shutdown cancels in-flight runners and waits for each to persist its
// terminal record, or until ctx expires.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	for _, cancel := range d.tasks {
		cancel()
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) release(id string) {
	d.mu.Lock()
	if cancel, ok := d.tasks[id]; ok {
		cancel()
		delete(d.tasks, id)
	}
	d.mu.Unlock()
}

// nextID produces ids of the form <prefix>_<unix-millis>_<seq>. The sequence
// disambiguates jobs dispatched within the same clock tick; ids are unique
// for the lifetime of the store.
func (d *Dispatcher) nextID(kind domain.JobKind) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now().UnixMilli()
	if now <= d.lastTick {
		d.seq++
	} else {
		d.lastTick = now
		d.seq = 0
	}
	return fmt.Sprintf("%s_%d_%d", idPrefix(kind), d.lastTick, d.seq)
}

func idPrefix(kind domain.JobKind) string {
	switch kind {
	case domain.JobKindVideoGenerate:
		return "op"
	case domain.JobKindImageVideo:
		return "img_op"
	case domain.JobKindImageGenerate:
		return "imggen_op"
	case domain.JobKindSegmentation:
		return "seg_op"
	case domain.JobKindVirtualTryOn:
		return "vto_op"
	case domain.JobKindProductRecontext:
		return "recontext_op"
	case domain.JobKindVideoEdit:
		return "veo_edit_op"
	case domain.JobKindVideoEditAdv:
		return "veo_advanced_op"
	case domain.JobKindImageEdit:
		return "imagen_edit_op"
	default:
		return "op"
	}
}
