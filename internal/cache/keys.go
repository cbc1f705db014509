package cache

import "fmt"

// JobRecordKey caches a terminal job record; terminal records never change,
// so they are safe to serve from cache.
func JobRecordKey(jobID string) string {
	return fmt.Sprintf("job:record:%s", jobID)
}

// UsageReportKey caches a computed usage report per range.
func UsageReportKey(rng string) string {
	return fmt.Sprintf("report:usage:%s", rng)
}
