package metrics

import (
	"context"
	"fmt"
	"time"

	"sonardash/src/contracts"
)

// freshnessWindow is how recent the newest observation must be for the
// cache to count as current.
const freshnessWindow = 48 * time.Hour

// CheckCoverage reports whether the cache holds enough fresh data for
// an identity over the trailing window of `days` days to serve a
// request without refetching. The cache covers the window when the
// newest observation is under two days old, the window holds at least
// one observation per ten days requested, and every required metric is
// present on the newest observation.
func (s *Store) CheckCoverage(ctx context.Context, projectKey, branch string, days int, now time.Time) (contracts.CoverageReport, error) {
	if days <= 0 {
		days = 1
	}
	since := now.UTC().AddDate(0, 0, -days)
	records, truncated, err := s.ReadRange(ctx, projectKey, branch, since, now.UTC(), 0)
	if err != nil {
		return contracts.CoverageReport{}, err
	}

	report := contracts.CoverageReport{}
	if len(records) == 0 {
		report.Reason = "no cached data"
		return report, nil
	}

	observations := make(map[time.Time]map[contracts.MetricName]bool)
	var latest time.Time
	for _, rec := range records {
		t := rec.ObservedAt.UTC()
		if observations[t] == nil {
			observations[t] = make(map[contracts.MetricName]bool)
		}
		observations[t][rec.Metric] = true
		if t.After(latest) {
			latest = t
		}
	}

	report.RecordCount = len(observations)
	report.LatestDate = latest
	report.DaysSinceLatest = int(now.UTC().Sub(latest).Hours() / 24)

	for _, m := range contracts.RequiredMetrics {
		if !observations[latest][m] {
			report.MissingMetrics = append(report.MissingMetrics, m)
		}
	}

	minRecords := days / 10
	if minRecords < 1 {
		minRecords = 1
	}

	switch {
	case now.UTC().Sub(latest) >= freshnessWindow:
		report.Reason = fmt.Sprintf("latest observation is %d days old", report.DaysSinceLatest)
	case report.RecordCount < minRecords:
		report.Reason = fmt.Sprintf("only %d observations for a %d day window", report.RecordCount, days)
	case len(report.MissingMetrics) > 0:
		report.Reason = fmt.Sprintf("latest observation is missing %d required metrics", len(report.MissingMetrics))
	case truncated:
		report.Reason = "cached read was truncated"
	default:
		report.HasCoverage = true
	}
	return report, nil
}
