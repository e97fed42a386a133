package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hakim/headerstat/internal/models"
	"github.com/hakim/headerstat/internal/storage"
)

const separator = "────────────────────────────────────────────────────────────────────────"

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show run history for a target list",
	Long: `Display a formatted table of past runs for a source (target list name).

Runs are listed newest-first. Each row shows the run ID (truncated), start time,
completion status, how many targets were analyzed, and the coverage of the top headers.
Without --source, every recorded source is listed.

Use --limit to cap the number of rows shown (default: 10).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Step 1: Get flags
		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")

		// Step 2: Config check
		if cfg == nil {
			return fmt.Errorf("config not loaded. Run 'headerstat init' first to create config")
		}

		// Step 3: Open bbolt store
		store, err := storage.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		if source == "" {
			return printSources(store)
		}

		// Step 4: List runs (sorted newest-first by store.ListRuns)
		runs, err := store.ListRuns(source)
		if err != nil {
			return fmt.Errorf("listing runs for %s: %w", source, err)
		}

		if len(runs) == 0 {
			fmt.Printf("No run history found for %s\n", source)
			return nil
		}

		// Step 5: Apply limit
		if limit > 0 && len(runs) > limit {
			runs = runs[:limit]
		}

		// Step 6: Print formatted table
		fmt.Printf("\nRun History for %s\n", source)
		fmt.Println(separator)
		fmt.Printf("  %-3s  %-12s  %-17s  %-9s  %-13s  %s\n", "#", "Run ID", "Started", "Status", "Analyzed", "Coverage")
		fmt.Println(separator)

		for i, run := range runs {
			fmt.Printf("  %-3d  %-12s  %-17s  %-9s  %-13s  %s\n",
				i+1,
				shortRunID(run.ID),
				run.StartedAt.UTC().Format("2006-01-02 15:04"),
				string(run.Status),
				fmt.Sprintf("%d/%d", run.Summary.Analyzed, run.Summary.Requested),
				formatCoverage(run))
		}

		fmt.Println(separator)
		fmt.Printf("Total: %d run(s)\n\n", len(runs))

		return nil
	},
}

func printSources(store *storage.Store) error {
	sources, err := store.ListSources()
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}
	if len(sources) == 0 {
		fmt.Println("No runs recorded yet")
		return nil
	}

	fmt.Printf("\nRecorded sources\n")
	fmt.Println(separator)
	for _, source := range sources {
		runs, err := store.ListRuns(source)
		if err != nil {
			return fmt.Errorf("listing runs for %s: %w", source, err)
		}
		latest := "-"
		if len(runs) > 0 {
			latest = runs[0].StartedAt.UTC().Format("2006-01-02 15:04")
		}
		fmt.Printf("  %-30s  %3d run(s)  latest %s\n", source, len(runs), latest)
	}
	fmt.Println(separator)
	return nil
}

// shortRunID returns the first 8 characters of a UUID followed by "..." for
// compact table display. Falls back to the full ID when shorter than 8 chars.
func shortRunID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}

// formatCoverage renders the top-N coverage, or "no data" for empty runs.
func formatCoverage(run *models.RunRecord) string {
	if run.NoData {
		return "no data"
	}
	if run.Report == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f%% (top %d)", run.Report.CoveragePercent, len(run.Report.TopN))
}

func init() {
	historyCmd.Flags().StringP("source", "s", "", "source name (target list file name without extension)")
	historyCmd.Flags().Int("limit", 10, "Maximum number of runs to display")
	rootCmd.AddCommand(historyCmd)
}
