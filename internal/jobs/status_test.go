package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

// mapCache is an in-memory cache.Cache for tests. TTLs are ignored.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
}

func newMapCache() *mapCache { return &mapCache{entries: map[string][]byte{}} }

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	return raw, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]byte(nil), value...)
	c.sets++
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *mapCache) Ping(ctx context.Context) error { return nil }
func (c *mapCache) Close() error                   { return nil }

func seedJob(t *testing.T, repo *memoryRepo, id string, status domain.JobStatus, createdAt time.Time, errDetail string) {
	t.Helper()
	err := repo.Create(context.Background(), &domain.Job{
		ID:          id,
		Summary:     "prompt " + id,
		Kind:        domain.JobKindVideoGenerate,
		Status:      status,
		ErrorDetail: errDetail,
		CreatedAt:   createdAt,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestGetStatusNotFound(t *testing.T) {
	svc := NewStatusService(newMemoryRepo(), nil, zerolog.Nop())
	if _, err := svc.GetStatus(context.Background(), "op_missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetStatusCachesTerminalRecords(t *testing.T) {
	repo := newMemoryRepo()
	c := newMapCache()
	svc := NewStatusService(repo, c, zerolog.Nop())
	now := time.Now().UTC()
	seedJob(t, repo, "op_done", domain.JobStatusCompleted, now, "")
	seedJob(t, repo, "op_live", domain.JobStatusRunning, now, "")

	job, err := svc.GetStatus(context.Background(), "op_done")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %s", job.Status)
	}
	if c.sets != 1 {
		t.Fatalf("cache sets = %d, want 1 for terminal record", c.sets)
	}

	// Non-terminal records must never be cached.
	if _, err := svc.GetStatus(context.Background(), "op_live"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.sets != 1 {
		t.Fatalf("cache sets = %d, running record must not be cached", c.sets)
	}

	// A cached terminal record is served without the store.
	delete(repo.jobs, "op_done")
	job, err = svc.GetStatus(context.Background(), "op_done")
	if err != nil {
		t.Fatalf("get from cache: %v", err)
	}
	if job.ID != "op_done" || job.Status != domain.JobStatusCompleted {
		t.Fatalf("cached record = %+v", job)
	}
}

func TestListHistoryNewestFirst(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewStatusService(repo, nil, zerolog.Nop())
	now := time.Now().UTC()
	seedJob(t, repo, "op_old", domain.JobStatusCompleted, now.Add(-2*time.Hour), "")
	seedJob(t, repo, "op_new", domain.JobStatusQueued, now, "")

	history, err := svc.ListHistory(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %d records, want 2", len(history))
	}
	if history[0].ID != "op_new" || history[1].ID != "op_old" {
		t.Fatalf("history order = [%s %s], want newest first", history[0].ID, history[1].ID)
	}
}

func TestUsageReportFoldsRecords(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewStatusService(repo, nil, zerolog.Nop())
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	seedJob(t, repo, "a", domain.JobStatusCompleted, now.Add(-time.Hour), "")
	seedJob(t, repo, "b", domain.JobStatusCompleted, now.Add(-time.Hour), "")
	seedJob(t, repo, "c", domain.JobStatusCompleted, now.Add(-time.Hour), "")
	seedJob(t, repo, "d", domain.JobStatusFailed, now.Add(-time.Hour), "boom")
	seedJob(t, repo, "e", domain.JobStatusFailed, now.Add(-time.Hour), "boom")
	seedJob(t, repo, "f", domain.JobStatusCompleted, now.Add(-10*24*time.Hour), "")

	report, err := svc.UsageReport(context.Background(), domain.ReportRange7Days)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Total != 5 || report.Completed != 3 || report.Failed != 2 {
		t.Fatalf("report = %+v, want 5 total, 3 completed, 2 failed", report)
	}
	if report.SuccessRate != 60 {
		t.Fatalf("success rate = %v, want 60", report.SuccessRate)
	}
}

func TestUsageReportServedFromCache(t *testing.T) {
	repo := newMemoryRepo()
	c := newMapCache()
	svc := NewStatusService(repo, c, zerolog.Nop())
	now := time.Now().UTC()
	seedJob(t, repo, "a", domain.JobStatusCompleted, now, "")

	first, err := svc.UsageReport(context.Background(), domain.ReportRangeAll)
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	// New records do not appear until the cached report expires.
	seedJob(t, repo, "b", domain.JobStatusFailed, now, "boom")
	second, err := svc.UsageReport(context.Background(), domain.ReportRangeAll)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if second.Total != first.Total {
		t.Fatalf("cached report total = %d, want %d", second.Total, first.Total)
	}
}
