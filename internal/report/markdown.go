package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hakim/headerstat/internal/models"
)

// WriteHeaderReport generates a markdown report for a completed analysis run
// and writes it to the specified output path.
func WriteHeaderReport(run *models.RunRecord, outputPath string) error {
	var b strings.Builder

	// Header
	b.WriteString("# Response Header Report\n\n")
	b.WriteString(fmt.Sprintf("**Source:** %s\n", run.Source))
	b.WriteString(fmt.Sprintf("**Run ID:** %s\n", run.ID))
	b.WriteString(fmt.Sprintf("**Date:** %s\n", run.StartedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
	b.WriteString(fmt.Sprintf("**Analyzed:** %d of %d requested targets | **Elapsed:** %s\n\n",
		run.Summary.Analyzed, run.Summary.Requested, run.Elapsed.Round(time.Millisecond)))

	writeTopHeaders(&b, run)
	writeRunSummary(&b, run.Summary)
	writeFailures(&b, run.Failures)

	return writeFile(outputPath, b.String())
}

// writeTopHeaders renders the ranking table and coverage line.
func writeTopHeaders(b *strings.Builder, run *models.RunRecord) {
	if run.NoData || run.Report == nil {
		b.WriteString("## Top Headers\n\n")
		b.WriteString("No data: none of the targets returned headers, so no statistics were computed.\n\n")
		return
	}

	r := run.Report
	b.WriteString(fmt.Sprintf("## Top %d Headers\n\n", r.RequestedTopN))
	if len(r.TopN) > 0 {
		b.WriteString("| Rank | Header | Responses | Share |\n")
		b.WriteString("|------|--------|-----------|-------|\n")
		for i, hc := range r.TopN {
			b.WriteString(fmt.Sprintf("| %d | %s | %d | %.2f%% |\n",
				i+1, escapeCell(hc.Name), hc.Count, hc.Percent))
		}
	} else {
		b.WriteString("None found.\n")
	}
	b.WriteString("\n")

	b.WriteString("## Coverage\n\n")
	b.WriteString(fmt.Sprintf("%.2f%% of responses (%d of %d) contain every header above.\n",
		r.CoveragePercent, r.CoveredCount, r.BatchSize))
	b.WriteString(fmt.Sprintf("%d distinct header names were seen.\n\n", r.DistinctHeaders))
}

// writeRunSummary renders how many targets survived each step.
func writeRunSummary(b *strings.Builder, s models.RunSummary) {
	b.WriteString("## Summary\n\n")
	b.WriteString(fmt.Sprintf("- **Requested:** %d\n", s.Requested))
	b.WriteString(fmt.Sprintf("- **Invalid:** %d\n", s.Invalid))
	b.WriteString(fmt.Sprintf("- **Out of scope:** %d\n", s.OutOfScope))
	b.WriteString(fmt.Sprintf("- **Attempted:** %d\n", s.Attempted))
	b.WriteString(fmt.Sprintf("- **Analyzed:** %d\n", s.Analyzed))
	b.WriteString(fmt.Sprintf("- **Failed:** %d\n\n", s.Failed))
}

// writeFailures lists targets that produced no headers. Skipped when empty.
func writeFailures(b *strings.Builder, failures []models.FailureRecord) {
	if len(failures) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("## Failures (%d)\n\n", len(failures)))
	b.WriteString("| Target | Reason |\n")
	b.WriteString("|--------|--------|\n")
	for _, f := range failures {
		b.WriteString(fmt.Sprintf("| %s | %s |\n", escapeCell(f.Input), escapeCell(f.Reason)))
	}
	b.WriteString("\n")
}

// escapeCell keeps arbitrary header names and error text from breaking the table.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func writeFile(outputPath, content string) error {
	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing report to %s: %w", outputPath, err)
	}
	return nil
}
