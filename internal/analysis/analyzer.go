// Package analysis derives header frequency statistics from a batch of
// fetched header maps: per-header presence counts, a deterministic top-N
// ranking, and the share of responses carrying every top-N header.
package analysis

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hakim/headerstat/internal/models"
)

var (
	// ErrEmptyBatch is returned when there are no successful responses to analyze.
	ErrEmptyBatch = errors.New("no successful responses to analyze")
	// ErrInvalidTopN is returned for a negative top-N request.
	ErrInvalidTopN = errors.New("top-N must not be negative")
)

// CountPresence returns, for every header name in the batch, the number of
// header maps containing it. A name counts at most once per map.
func CountPresence(batch models.Batch) map[string]int {
	counts := make(map[string]int)
	for _, h := range batch {
		// HeaderMap names are already unique per map.
		for _, name := range h.Names() {
			counts[name]++
		}
	}
	return counts
}

// Rank orders counts by count descending, breaking ties by name ascending,
// and returns at most n entries. Percent is left unset.
func Rank(counts map[string]int, n int) []models.HeaderCount {
	ranked := make([]models.HeaderCount, 0, len(counts))
	for name, c := range counts {
		ranked = append(ranked, models.HeaderCount{Name: name, Count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Name < ranked[j].Name
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// Coverage returns how many maps in batch contain every name in names.
func Coverage(batch models.Batch, names []string) int {
	covered := 0
	for _, h := range batch {
		if containsAll(h, names) {
			covered++
		}
	}
	return covered
}

func containsAll(h *models.HeaderMap, names []string) bool {
	for _, name := range names {
		if !h.Has(name) {
			return false
		}
	}
	return true
}

// Analyze counts, ranks and computes coverage for batch.
//
// An empty batch yields ErrEmptyBatch rather than a report, since coverage
// over zero responses is undefined. With topN == 0 the ranking is empty and
// every response trivially satisfies it, so coverage is 100.
func Analyze(batch models.Batch, topN int) (*models.AnalysisReport, error) {
	if topN < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopN, topN)
	}
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	counts := CountPresence(batch)
	top := Rank(counts, topN)

	size := float64(len(batch))
	for i := range top {
		top[i].Percent = 100 * float64(top[i].Count) / size
	}

	report := &models.AnalysisReport{
		TopN:            top,
		RequestedTopN:   topN,
		BatchSize:       len(batch),
		DistinctHeaders: len(counts),
	}
	report.CoveredCount = Coverage(batch, report.Names())
	report.CoveragePercent = 100 * float64(report.CoveredCount) / size

	return report, nil
}
