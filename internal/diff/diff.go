// Package diff computes the delta between the header statistics of two runs.
// It compares two AnalysisReports and produces a ReportDiff that identifies
// which headers entered or left the top N, which moved, and how coverage changed.
package diff

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hakim/headerstat/internal/models"
)

// RawFile is the name of the structured run output under {runDir}/raw/.
const RawFile = "headers.json"

// rawOutput mirrors the fields of the raw run file that diff needs, without
// importing the package that writes it.
type rawOutput struct {
	Report *models.AnalysisReport `json:"report"`
}

// LoadReport reads the analysis report from {runDir}/raw/headers.json.
// It returns (nil, nil) when the file is absent or the run produced no data.
func LoadReport(runDir string) (*models.AnalysisReport, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "raw", RawFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out rawOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", RawFile, err)
	}
	return out.Report, nil
}

// ---------------------------------------------------------------------------
// ReportDiff
// ---------------------------------------------------------------------------

// HeaderChange describes one header across the two reports.
// Ranks are 1-based; 0 means the header was not in that report's top N.
type HeaderChange struct {
	Name            string  `json:"name"`
	PreviousRank    int     `json:"previous_rank"`
	CurrentRank     int     `json:"current_rank"`
	PreviousCount   int     `json:"previous_count"`
	CurrentCount    int     `json:"current_count"`
	PreviousPercent float64 `json:"previous_percent"`
	CurrentPercent  float64 `json:"current_percent"`
}

// RankDelta is positive when the header climbed.
func (c HeaderChange) RankDelta() int {
	if c.PreviousRank == 0 || c.CurrentRank == 0 {
		return 0
	}
	return c.PreviousRank - c.CurrentRank
}

// PercentDelta is the change in presence share, in percentage points.
func (c HeaderChange) PercentDelta() float64 {
	return c.CurrentPercent - c.PreviousPercent
}

// ReportDiff holds the delta between a previous and a current report.
// All slice fields are non-nil (empty slices, not nil) so callers can range
// over them unconditionally.
type ReportDiff struct {
	// Added headers are in the current top N only.
	Added []HeaderChange `json:"added"`
	// Removed headers are in the previous top N only.
	Removed []HeaderChange `json:"removed"`
	// Moved headers are in both and changed rank.
	Moved []HeaderChange `json:"moved"`
	// Unchanged headers kept their rank; their counts may still differ.
	Unchanged []HeaderChange `json:"unchanged"`

	PreviousCoverage  float64 `json:"previous_coverage"`
	CurrentCoverage   float64 `json:"current_coverage"`
	PreviousBatchSize int     `json:"previous_batch_size"`
	CurrentBatchSize  int     `json:"current_batch_size"`
}

// CoverageDelta is the change in coverage, in percentage points.
func (d *ReportDiff) CoverageDelta() float64 {
	return d.CurrentCoverage - d.PreviousCoverage
}

// IsEmpty reports whether the top N is identical in membership and order.
func (d *ReportDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Moved) == 0
}

// ---------------------------------------------------------------------------
// Compare
// ---------------------------------------------------------------------------

// Compare calculates the delta between prev and curr. A nil report is treated
// as an empty one, so comparing against no previous run reports every current
// header as added.
func Compare(prev, curr *models.AnalysisReport) *ReportDiff {
	if prev == nil {
		prev = &models.AnalysisReport{}
	}
	if curr == nil {
		curr = &models.AnalysisReport{}
	}

	d := &ReportDiff{
		Added:             []HeaderChange{},
		Removed:           []HeaderChange{},
		Moved:             []HeaderChange{},
		Unchanged:         []HeaderChange{},
		PreviousCoverage:  prev.CoveragePercent,
		CurrentCoverage:   curr.CoveragePercent,
		PreviousBatchSize: prev.BatchSize,
		CurrentBatchSize:  curr.BatchSize,
	}

	previous := indexByName(prev.TopN)

	for i, hc := range curr.TopN {
		change := HeaderChange{
			Name:           hc.Name,
			CurrentRank:    i + 1,
			CurrentCount:   hc.Count,
			CurrentPercent: hc.Percent,
		}

		old, ok := previous[hc.Name]
		if !ok {
			d.Added = append(d.Added, change)
			continue
		}
		delete(previous, hc.Name)

		change.PreviousRank = old.rank
		change.PreviousCount = old.Count
		change.PreviousPercent = old.Percent
		if change.PreviousRank != change.CurrentRank {
			d.Moved = append(d.Moved, change)
		} else {
			d.Unchanged = append(d.Unchanged, change)
		}
	}

	// Whatever is left in the index dropped out of the top N.
	for name, old := range previous {
		d.Removed = append(d.Removed, HeaderChange{
			Name:            name,
			PreviousRank:    old.rank,
			PreviousCount:   old.Count,
			PreviousPercent: old.Percent,
		})
	}
	sort.Slice(d.Removed, func(i, j int) bool {
		return d.Removed[i].PreviousRank < d.Removed[j].PreviousRank
	})

	return d
}

type rankedCount struct {
	models.HeaderCount
	rank int
}

func indexByName(top []models.HeaderCount) map[string]rankedCount {
	m := make(map[string]rankedCount, len(top))
	for i, hc := range top {
		m[hc.Name] = rankedCount{HeaderCount: hc, rank: i + 1}
	}
	return m
}
