package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/hakim/headerstat/internal/diff"
	"github.com/hakim/headerstat/internal/models"
)

// WriteDiffReport generates a markdown report capturing the delta between the
// header statistics of two runs and writes it to outputPath.
func WriteDiffReport(result *diff.ReportDiff, prev, curr *models.RunMeta, outputPath string) error {
	var b strings.Builder

	b.WriteString("# Header Diff Report\n\n")
	b.WriteString(fmt.Sprintf("**Date:** %s\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC")))
	if prev != nil && curr != nil {
		b.WriteString(fmt.Sprintf("**Previous run:** %s (%s)\n", prev.ID, prev.StartedAt.UTC().Format("2006-01-02 15:04:05")))
		b.WriteString(fmt.Sprintf("**Current run:** %s (%s)\n", curr.ID, curr.StartedAt.UTC().Format("2006-01-02 15:04:05")))
	}
	b.WriteString("\n")

	writeDiffSummaryTable(&b, result)

	// If the top N is unchanged, short-circuit.
	if result.IsEmpty() {
		b.WriteString("No changes in the top headers.\n")
		return writeFile(outputPath, b.String())
	}

	writeAddedHeaders(&b, result.Added)
	writeRemovedHeaders(&b, result.Removed)
	writeMovedHeaders(&b, result.Moved)

	return writeFile(outputPath, b.String())
}

// ---------------------------------------------------------------------------
// Section writers
// ---------------------------------------------------------------------------

// writeDiffSummaryTable writes the comparison table.
func writeDiffSummaryTable(b *strings.Builder, r *diff.ReportDiff) {
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Previous | Current | Change |\n")
	b.WriteString("|--------|----------|---------|--------|\n")

	b.WriteString(fmt.Sprintf("| Responses analyzed | %d | %d | %+d |\n",
		r.PreviousBatchSize, r.CurrentBatchSize, r.CurrentBatchSize-r.PreviousBatchSize))
	b.WriteString(fmt.Sprintf("| Coverage | %.2f%% | %.2f%% | %+.2f pp |\n",
		r.PreviousCoverage, r.CurrentCoverage, r.CoverageDelta()))
	b.WriteString(fmt.Sprintf("| Top headers | - | - | %s |\n",
		formatChange(len(r.Added), len(r.Removed))))

	b.WriteString("\n")
}

// writeAddedHeaders renders headers that entered the top N. Skipped when empty.
func writeAddedHeaders(b *strings.Builder, changes []diff.HeaderChange) {
	if len(changes) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("## New Top Headers (+%d)\n\n", len(changes)))
	for _, c := range changes {
		b.WriteString(fmt.Sprintf("- #%d %s (%d responses, %.2f%%)\n",
			c.CurrentRank, c.Name, c.CurrentCount, c.CurrentPercent))
	}
	b.WriteString("\n")
}

// writeRemovedHeaders renders headers that left the top N. Skipped when empty.
func writeRemovedHeaders(b *strings.Builder, changes []diff.HeaderChange) {
	if len(changes) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("## Dropped Top Headers (-%d)\n\n", len(changes)))
	for _, c := range changes {
		b.WriteString(fmt.Sprintf("- was #%d %s (%d responses, %.2f%%)\n",
			c.PreviousRank, c.Name, c.PreviousCount, c.PreviousPercent))
	}
	b.WriteString("\n")
}

// writeMovedHeaders renders rank changes as a table. Skipped when empty.
func writeMovedHeaders(b *strings.Builder, changes []diff.HeaderChange) {
	if len(changes) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("## Rank Changes (%d)\n\n", len(changes)))
	b.WriteString("| Header | Previous Rank | Current Rank | Share Change |\n")
	b.WriteString("|--------|---------------|--------------|--------------|\n")
	for _, c := range changes {
		b.WriteString(fmt.Sprintf("| %s | %d | %d | %+.2f pp |\n",
			escapeCell(c.Name), c.PreviousRank, c.CurrentRank, c.PercentDelta()))
	}
	b.WriteString("\n")
}

// formatChange returns a human-readable change string such as "+3 / -1".
func formatChange(added, removed int) string {
	if added == 0 && removed == 0 {
		return "none"
	}
	parts := make([]string, 0, 2)
	if added > 0 {
		parts = append(parts, fmt.Sprintf("+%d", added))
	}
	if removed > 0 {
		parts = append(parts, fmt.Sprintf("-%d", removed))
	}
	return strings.Join(parts, " / ")
}
