package tui

import (
	"fmt"
	"sort"

	"sonardash/src/contracts"
)

// Item represents one (project, branch) identity in the dashboard list.
// It wraps the cached metric records and implements bubbles/list.Item.
type Item struct {
	Ref     contracts.ProjectRef
	Records []contracts.MetricRecord
}

// NewItem creates an item with its records sorted by observation time.
func NewItem(ref contracts.ProjectRef, records []contracts.MetricRecord) Item {
	sorted := make([]contracts.MetricRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ObservedAt.Before(sorted[j].ObservedAt)
	})
	return Item{Ref: ref, Records: sorted}
}

// FilterValue is the value used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Ref.ProjectKey }

// Title returns the primary text for the item (required by list.Item).
func (i Item) Title() string { return i.Ref.ProjectKey }

// Description returns the secondary text for the item (required by list.Item).
func (i Item) Description() string { return i.Ref.Branch }

// Series returns the ordered values of one metric.
func (i Item) Series(metric contracts.MetricName) []float64 {
	var values []float64
	for _, r := range i.Records {
		if r.Metric == metric {
			values = append(values, r.Value)
		}
	}
	return values
}

// Latest returns the most recent value of one metric.
func (i Item) Latest(metric contracts.MetricName) (float64, bool) {
	for idx := len(i.Records) - 1; idx >= 0; idx-- {
		if i.Records[idx].Metric == metric {
			return i.Records[idx].Value, true
		}
	}
	return 0, false
}

// FormatLatest formats the most recent value of a metric for display.
// Missing values render as a dash.
func (i Item) FormatLatest(metric contracts.MetricName) string {
	v, ok := i.Latest(metric)
	if !ok {
		return "-"
	}
	switch {
	case metric.IsPercent():
		return fmt.Sprintf("%.1f%%", v)
	case metric.IsCount():
		return fmt.Sprintf("%d", int(v))
	default:
		return RatingLetter(v)
	}
}

// RatingLetter converts a numeric rating (1.0 = A .. 5.0 = E) to its letter.
func RatingLetter(v float64) string {
	letters := []string{"A", "B", "C", "D", "E"}
	idx := int(v) - 1
	if idx < 0 || idx >= len(letters) {
		return "-"
	}
	return letters[idx]
}
