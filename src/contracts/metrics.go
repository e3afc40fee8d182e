// Package contracts defines the domain types shared between the fetcher,
// the cache layer, and the presentation surfaces.
package contracts

import (
	"strconv"
	"time"
)

// MetricName identifies one of the fixed set of code-quality metrics
// tracked per project and branch.
type MetricName string

const (
	MetricCoverage                 MetricName = "coverage"
	MetricDuplicatedLinesDensity   MetricName = "duplicated_lines_density"
	MetricBugs                     MetricName = "bugs"
	MetricReliabilityRating        MetricName = "reliability_rating"
	MetricVulnerabilities          MetricName = "vulnerabilities"
	MetricSecurityRating           MetricName = "security_rating"
	MetricSecurityHotspots         MetricName = "security_hotspots"
	MetricSecurityReviewRating     MetricName = "security_review_rating"
	MetricSecurityHotspotsReviewed MetricName = "security_hotspots_reviewed"
	MetricCodeSmells               MetricName = "code_smells"
	MetricSqaleRating              MetricName = "sqale_rating"
	MetricMajorViolations          MetricName = "major_violations"
	MetricMinorViolations          MetricName = "minor_violations"
	MetricViolations               MetricName = "violations"
)

// AllMetrics is the full metric set requested from the remote service and
// stored per observation.
var AllMetrics = []MetricName{
	MetricCoverage,
	MetricDuplicatedLinesDensity,
	MetricBugs,
	MetricReliabilityRating,
	MetricVulnerabilities,
	MetricSecurityRating,
	MetricSecurityHotspots,
	MetricSecurityReviewRating,
	MetricSecurityHotspotsReviewed,
	MetricCodeSmells,
	MetricSqaleRating,
	MetricMajorViolations,
	MetricMinorViolations,
	MetricViolations,
}

// RequiredMetrics are the metrics that must be present for stored data to
// count as usable coverage of a time window.
var RequiredMetrics = []MetricName{
	MetricVulnerabilities,
	MetricSecurityHotspots,
	MetricDuplicatedLinesDensity,
	MetricSecurityRating,
	MetricReliabilityRating,
}

var metricSet = func() map[MetricName]bool {
	m := make(map[MetricName]bool, len(AllMetrics))
	for _, name := range AllMetrics {
		m[name] = true
	}
	return m
}()

// IsValid reports whether the name belongs to the tracked metric set.
func (m MetricName) IsValid() bool {
	return metricSet[m]
}

// percentMetrics are reported as percentages and parsed as floats; counts
// are parsed as integers. Ratings arrive as numeric strings ("1.0".."5.0")
// and keep their numeric value.
var percentMetrics = map[MetricName]bool{
	MetricCoverage:                 true,
	MetricDuplicatedLinesDensity:   true,
	MetricSecurityHotspotsReviewed: true,
}

var countMetrics = map[MetricName]bool{
	MetricBugs:             true,
	MetricVulnerabilities:  true,
	MetricSecurityHotspots: true,
	MetricCodeSmells:       true,
	MetricMajorViolations:  true,
	MetricMinorViolations:  true,
	MetricViolations:       true,
}

// ParseValue converts a raw metric value from the remote API into its
// numeric form. Unparseable values collapse to zero rather than failing
// the whole fetch, matching how gaps in the remote history behave.
func (m MetricName) ParseValue(raw string) float64 {
	if countMetrics[m] {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0
		}
		return float64(n)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f
}

// IsPercent reports whether the metric is a percentage (used by the
// presentation layer for formatting).
func (m MetricName) IsPercent() bool {
	return percentMetrics[m]
}

// IsCount reports whether the metric is an integer count.
func (m MetricName) IsCount() bool {
	return countMetrics[m]
}

// MetricRecord is one retrieved measurement for a (project, branch)
// identity. The storage keys are derived from the identity by the keys
// package and never set directly.
type MetricRecord struct {
	ProjectKey string     `json:"project_key"`
	Branch     string     `json:"branch"`
	Metric     MetricName `json:"metric"`
	Value      float64    `json:"value"`
	ObservedAt time.Time  `json:"observed_at"`
}

// ProjectRef identifies a (project, branch) pair known to the cache.
type ProjectRef struct {
	ProjectKey string `json:"project_key"`
	Branch     string `json:"branch"`
}

// Project is a project as listed by the remote service.
type Project struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// BranchInfo is a branch as listed by the remote service.
type BranchInfo struct {
	Name   string `json:"name"`
	IsMain bool   `json:"isMain"`
}

// CoverageReport describes whether stored data is fresh and complete
// enough to serve a requested window without refetching.
type CoverageReport struct {
	HasCoverage     bool         `json:"has_coverage"`
	RecordCount     int          `json:"record_count"`
	LatestDate      time.Time    `json:"latest_date"`
	DaysSinceLatest int          `json:"days_since_latest"`
	MissingMetrics  []MetricName `json:"missing_metrics,omitempty"`
	Reason          string       `json:"reason"`
}

// MetricsCachedEvent announces that a batch of records for one identity
// was written to the cache.
// Published to: sonardash.metrics.cached
// Key: {project_key}
type MetricsCachedEvent struct {
	RequestID  string `json:"request_id"`
	ProjectKey string `json:"project_key"`
	Branch     string `json:"branch"`
	Records    int    `json:"records"`
	Timestamp  string `json:"timestamp"`
}

// TopicMetricsCached carries MetricsCachedEvent messages for downstream
// consumers of the cache.
const TopicMetricsCached = "sonardash.metrics.cached"
