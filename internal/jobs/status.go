package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"server/internal/cache"
	"server/internal/domain"
)

const (
	jobRecordCacheTTL   = 24 * time.Hour
	usageReportCacheTTL = 30 * time.Second
)

// StatusService is the read-only query surface over the job record store.
// It never mutates records. The cache is optional; when present, terminal
// records (which are immutable) and computed reports are served from it.
type StatusService struct {
	repo   domain.JobRepository
	cache  cache.Cache
	logger zerolog.Logger
	now    func() time.Time
}

// NewStatusService builds the query service. cache may be nil.
func NewStatusService(repo domain.JobRepository, c cache.Cache, logger zerolog.Logger) *StatusService {
	return &StatusService{repo: repo, cache: c, logger: logger, now: time.Now}
}

// GetStatus returns the full current record for a job, or
// domain.ErrNotFound.
func (s *StatusService) GetStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, cache.JobRecordKey(jobID)); err == nil && ok {
			var job domain.Job
			if err := json.Unmarshal(raw, &job); err == nil {
				return &job, nil
			}
		}
	}

	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && job.Status.Terminal() {
		if raw, err := json.Marshal(job); err == nil {
			if err := s.cache.Set(ctx, cache.JobRecordKey(jobID), raw, jobRecordCacheTTL); err != nil {
				s.logger.Warn().Err(err).Str("job_id", jobID).Msg("status: cache record failed")
			}
		}
	}
	return job, nil
}

// ListHistory returns every record, newest first.
func (s *StatusService) ListHistory(ctx context.Context) ([]domain.Job, error) {
	return s.repo.ListSince(ctx, time.Time{})
}

// UsageReport aggregates records within the requested window. Defined as a
// deterministic fold over ListSince.
func (s *StatusService) UsageReport(ctx context.Context, rng domain.ReportRange) (*domain.UsageReport, error) {
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, cache.UsageReportKey(string(rng))); err == nil && ok {
			var report domain.UsageReport
			if err := json.Unmarshal(raw, &report); err == nil {
				return &report, nil
			}
		}
	}

	now := s.now().UTC()
	records, err := s.repo.ListSince(ctx, domain.ReportCutoff(rng, now))
	if err != nil {
		return nil, err
	}
	report := domain.BuildUsageReport(rng, records, now)

	if s.cache != nil {
		if raw, err := json.Marshal(report); err == nil {
			if err := s.cache.Set(ctx, cache.UsageReportKey(string(rng)), raw, usageReportCacheTTL); err != nil {
				s.logger.Warn().Err(err).Msg("status: cache report failed")
			}
		}
	}
	return report, nil
}
