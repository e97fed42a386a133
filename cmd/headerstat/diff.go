package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hakim/headerstat/internal/diff"
	"github.com/hakim/headerstat/internal/models"
	"github.com/hakim/headerstat/internal/report"
	"github.com/hakim/headerstat/internal/storage"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare two runs and report what changed",
	Long: `Compare the header statistics of two runs.

By default the latest run for --source is compared against the run before it.
Use --from and --to with run IDs to compare any two runs.

When the current run has a run directory, results are saved to:
  - {run_dir}/reports/diff.md  (markdown change report)
  - {run_dir}/raw/diff.json    (structured diff JSON)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Step 1: Get flags
		source, _ := cmd.Flags().GetString("source")
		fromID, _ := cmd.Flags().GetString("from")
		toID, _ := cmd.Flags().GetString("to")

		// Step 2: Config check
		if cfg == nil {
			return fmt.Errorf("config not loaded. Run 'headerstat init' first to create config")
		}

		store, err := storage.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		// Step 3: Resolve the two runs
		previous, current, err := resolveRunPair(store, source, fromID, toID)
		if err != nil {
			return err
		}
		if previous == nil {
			fmt.Printf("[!] No previous run found for comparison\n")
			return nil
		}
		fmt.Printf("[*] Previous run: %s (%s)\n", previous.ID, previous.StartedAt.UTC().Format("2006-01-02 15:04"))
		fmt.Printf("[*] Current run:  %s (%s)\n", current.ID, current.StartedAt.UTC().Format("2006-01-02 15:04"))

		// Step 4: Load both reports
		prevReport, err := runReport(previous)
		if err != nil {
			return fmt.Errorf("loading previous report: %w", err)
		}
		currReport, err := runReport(current)
		if err != nil {
			return fmt.Errorf("loading current report: %w", err)
		}

		// Step 5: Compute and print
		result := diff.Compare(prevReport, currReport)
		printDiff(result)

		// Step 6: Write reports next to the current run
		if current.RunDir == "" {
			return nil
		}
		mdPath := filepath.Join(current.RunDir, "reports", "diff.md")
		if err := report.WriteDiffReport(result, &previous.RunMeta, &current.RunMeta, mdPath); err != nil {
			fmt.Printf("[!] Warning: failed to write diff report: %v\n", err)
		} else {
			fmt.Printf("[+] Diff report: %s\n", mdPath)
		}

		rawPath := filepath.Join(current.RunDir, "raw", "diff.json")
		rawData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling diff: %w", err)
		}
		if err := os.WriteFile(rawPath, rawData, 0644); err != nil {
			fmt.Printf("[!] Warning: failed to write %s: %v\n", rawPath, err)
		}

		return nil
	},
}

// resolveRunPair returns (previous, current). previous is nil when source has
// only one run.
func resolveRunPair(store *storage.Store, source, fromID, toID string) (*models.RunRecord, *models.RunRecord, error) {
	if fromID != "" || toID != "" {
		if fromID == "" || toID == "" {
			return nil, nil, fmt.Errorf("--from and --to must be used together")
		}
		previous, err := mustGetRun(store, fromID)
		if err != nil {
			return nil, nil, err
		}
		current, err := mustGetRun(store, toID)
		if err != nil {
			return nil, nil, err
		}
		return previous, current, nil
	}

	if source == "" {
		source = storage.SourceName(cfg.InputFile)
	}
	runs, err := store.ListRuns(source)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up run history: %w", err)
	}
	if len(runs) == 0 {
		return nil, nil, fmt.Errorf("no runs recorded for %s. Run 'headerstat analyze' first", source)
	}
	if len(runs) == 1 {
		return nil, runs[0], nil
	}
	return runs[1], runs[0], nil
}

func mustGetRun(store *storage.Store, id string) (*models.RunRecord, error) {
	run, err := store.GetRun(id)
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	if run == nil {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return run, nil
}

// runReport prefers the report stored with the run and falls back to the raw
// file in its run directory.
func runReport(run *models.RunRecord) (*models.AnalysisReport, error) {
	if run.Report != nil || run.RunDir == "" {
		return run.Report, nil
	}
	return diff.LoadReport(run.RunDir)
}

func printDiff(d *diff.ReportDiff) {
	fmt.Printf("[*] Coverage: %.2f%% -> %.2f%% (%+.2f pp)\n",
		d.PreviousCoverage, d.CurrentCoverage, d.CoverageDelta())
	if d.IsEmpty() {
		fmt.Println("[+] No changes in the top headers")
		return
	}
	for _, c := range d.Added {
		fmt.Printf("    [+] %s entered at #%d\n", c.Name, c.CurrentRank)
	}
	for _, c := range d.Removed {
		fmt.Printf("    [-] %s dropped out (was #%d)\n", c.Name, c.PreviousRank)
	}
	for _, c := range d.Moved {
		fmt.Printf("    [~] %s #%d -> #%d\n", c.Name, c.PreviousRank, c.CurrentRank)
	}
}

func init() {
	diffCmd.Flags().StringP("source", "s", "", "source name (default: derived from input_file)")
	diffCmd.Flags().String("from", "", "previous run ID")
	diffCmd.Flags().String("to", "", "current run ID")
	rootCmd.AddCommand(diffCmd)
}
