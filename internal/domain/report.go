package domain

import (
	"sort"
	"time"
)

// ReportRange selects the aggregation window for a usage report.
type ReportRange string

const (
	ReportRange7Days  ReportRange = "7d"
	ReportRange4Weeks ReportRange = "4w"
	ReportRangeAll    ReportRange = "all"
)

const (
	errMessageTruncateLen = 50
	topErrorLimit         = 5
)

// ParseReportRange validates a caller-supplied range string.
func ParseReportRange(s string) (ReportRange, bool) {
	switch ReportRange(s) {
	case ReportRange7Days, ReportRange4Weeks, ReportRangeAll:
		return ReportRange(s), true
	case "":
		return ReportRangeAll, true
	}
	return "", false
}

// ReportBucket aggregates outcomes for one day (7d range) or one week
// starting Monday (4w range).
type ReportBucket struct {
	Key         string  `json:"key"`
	Total       int     `json:"total"`
	Queued      int     `json:"queued"`
	Running     int     `json:"running"`
	Completed   int     `json:"completed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

// ErrorFrequency ranks a truncated failure message by how often it occurred.
type ErrorFrequency struct {
	Message string  `json:"message"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// UsageReport is the derived, read-only aggregate over job records.
type UsageReport struct {
	Range       ReportRange      `json:"range"`
	Total       int              `json:"total"`
	Completed   int              `json:"completed"`
	Failed      int              `json:"failed"`
	SuccessRate float64          `json:"success_rate"`
	Buckets     []ReportBucket   `json:"buckets,omitempty"`
	TopErrors   []ErrorFrequency `json:"top_errors,omitempty"`
}

// ReportCutoff returns the inclusive lower creation-time bound for records
// belonging to the range. The all-time range has a zero cutoff.
func ReportCutoff(r ReportRange, now time.Time) time.Time {
	switch r {
	case ReportRange7Days:
		return now.AddDate(0, 0, -7)
	case ReportRange4Weeks:
		return now.AddDate(0, 0, -28)
	}
	return time.Time{}
}

// BuildUsageReport folds job records into a usage report. The fold is
// deterministic: records outside the range cutoff are skipped, so callers
// may pass a superset of the window.
func BuildUsageReport(r ReportRange, records []Job, now time.Time) *UsageReport {
	cutoff := ReportCutoff(r, now)
	report := &UsageReport{Range: r}

	buckets := map[string]*ReportBucket{}
	errCounts := map[string]int{}
	failedWithDetail := 0

	for i := range records {
		rec := &records[i]
		if !cutoff.IsZero() && rec.CreatedAt.Before(cutoff) {
			continue
		}
		report.Total++
		switch rec.Status {
		case JobStatusCompleted:
			report.Completed++
		case JobStatusFailed:
			report.Failed++
			if rec.ErrorDetail != "" {
				errCounts[truncateMessage(rec.ErrorDetail)]++
				failedWithDetail++
			}
		}
		if key := bucketKey(r, rec.CreatedAt); key != "" {
			b := buckets[key]
			if b == nil {
				b = &ReportBucket{Key: key}
				buckets[key] = b
			}
			b.Total++
			switch rec.Status {
			case JobStatusQueued:
				b.Queued++
			case JobStatusRunning:
				b.Running++
			case JobStatusCompleted:
				b.Completed++
			case JobStatusFailed:
				b.Failed++
			}
		}
	}

	if report.Total > 0 {
		report.SuccessRate = float64(report.Completed) / float64(report.Total) * 100
	}

	for _, b := range buckets {
		if b.Total > 0 {
			b.SuccessRate = float64(b.Completed) / float64(b.Total) * 100
		}
		report.Buckets = append(report.Buckets, *b)
	}
	sort.Slice(report.Buckets, func(i, j int) bool {
		return report.Buckets[i].Key < report.Buckets[j].Key
	})

	report.TopErrors = rankErrors(errCounts, failedWithDetail)
	return report
}

func bucketKey(r ReportRange, created time.Time) string {
	t := created.UTC()
	switch r {
	case ReportRange7Days:
		return t.Format("2006-01-02")
	case ReportRange4Weeks:
		// Weeks start on Monday.
		offset := (int(t.Weekday()) + 6) % 7
		return t.AddDate(0, 0, -offset).Format("2006-01-02")
	}
	return ""
}

func truncateMessage(msg string) string {
	runes := []rune(msg)
	if len(runes) <= errMessageTruncateLen {
		return msg
	}
	return string(runes[:errMessageTruncateLen]) + "..."
}

func rankErrors(counts map[string]int, failedWithDetail int) []ErrorFrequency {
	if len(counts) == 0 {
		return nil
	}
	ranked := make([]ErrorFrequency, 0, len(counts))
	for msg, n := range counts {
		freq := ErrorFrequency{Message: msg, Count: n}
		if failedWithDetail > 0 {
			freq.Percent = float64(n) / float64(failedWithDetail) * 100
		}
		ranked = append(ranked, freq)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Message < ranked[j].Message
	})
	if len(ranked) > topErrorLimit {
		ranked = ranked[:topErrorLimit]
	}
	return ranked
}
