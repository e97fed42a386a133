package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/hakim/headerstat/internal/models"
)

// maxConsoleFailures caps how many failures PrintSummary lists.
const maxConsoleFailures = 10

// PrintSummary writes a colored summary of run to w.
func PrintSummary(w io.Writer, run *models.RunRecord) {
	if run == nil {
		fmt.Fprintln(w, "No run available.")
		return
	}

	success := color.New(color.FgGreen).SprintFunc()
	failure := color.New(color.FgRed).SprintFunc()
	highlight := color.New(color.FgCyan).SprintFunc()
	warning := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(w, "Header statistics: %s (run %s)\n", highlight(run.Source), run.ID)
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 60))

	s := run.Summary
	analyzed := fmt.Sprintf("%d of %d", s.Analyzed, s.Requested)
	if s.Analyzed < s.Requested {
		analyzed = warning(analyzed)
	} else {
		analyzed = success(analyzed)
	}
	fmt.Fprintf(w, "Analyzed:  %s requested targets\n", analyzed)
	fmt.Fprintf(w, "Skipped:   %d invalid, %d out of scope\n", s.Invalid, s.OutOfScope)
	if s.Failed > 0 {
		fmt.Fprintf(w, "Failed:    %s of %d attempted\n", failure(s.Failed), s.Attempted)
	} else {
		fmt.Fprintf(w, "Failed:    0 of %d attempted\n", s.Attempted)
	}
	fmt.Fprintf(w, "Elapsed:   %s\n\n", run.Elapsed.Round(time.Millisecond))

	if run.NoData || run.Report == nil {
		fmt.Fprintf(w, "%s\n", failure("No data: no target returned headers."))
	} else {
		r := run.Report
		fmt.Fprintf(w, "Top %d headers:\n", r.RequestedTopN)
		for i, hc := range r.TopN {
			fmt.Fprintf(w, "  %2d. %-40s %6d  %6.2f%%\n", i+1, hc.Name, hc.Count, hc.Percent)
		}
		fmt.Fprintf(w, "\nCoverage:  %s of responses contain all of the above\n",
			highlight(fmt.Sprintf("%.2f%%", r.CoveragePercent)))
	}

	if len(run.Failures) > 0 {
		fmt.Fprintf(w, "\nFailures:\n")
		for i, f := range run.Failures {
			if i == maxConsoleFailures {
				fmt.Fprintf(w, "  ... and %d more\n", len(run.Failures)-maxConsoleFailures)
				break
			}
			fmt.Fprintf(w, "  %s %s: %s\n", failure("x"), f.Input, f.Reason)
		}
	}

	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 60))
}
