package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hakim/headerstat/internal/config"
	"github.com/hakim/headerstat/internal/fetch"
	"github.com/hakim/headerstat/internal/pipeline"
	"github.com/hakim/headerstat/internal/report"
	"github.com/hakim/headerstat/internal/storage"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [url...]",
	Short: "Fetch headers from a target list and report statistics",
	Long: `Reads a target list (one "rank,host" or URL per line), sends a HEAD request to
each entry concurrently, and ranks the most common response header names.

Entries without a scheme use default_scheme (https unless configured). URLs given
as arguments replace the input file for this run.

Results are saved to:
  - {run_dir}/{source}_{timestamp}/reports/headers.md  (markdown report)
  - {run_dir}/{source}_{timestamp}/raw/headers.json    (responses and statistics)

Use --preset to start from a named profile; explicit flags take precedence.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Step 1: Apply preset, then flags
		if cfg == nil {
			return fmt.Errorf("config not loaded. Run 'headerstat init' first to create config")
		}
		if presetName, _ := cmd.Flags().GetString("preset"); presetName != "" {
			preset, err := pipeline.GetPreset(presetName)
			if err != nil {
				return err
			}
			preset.Apply(cfg)
			fmt.Printf("[*] Using preset %q: %s\n", preset.Name, preset.Description)
		}
		applyAnalyzeFlags(cmd, cfg)

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		// Step 2: Build the fetcher
		fetcher, err := fetch.NewFetcher(cfg.FetcherConfig())
		if err != nil {
			return fmt.Errorf("building fetcher: %w", err)
		}
		defer fetcher.Close()

		// Step 3: Open bbolt store
		store, err := storage.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		// Step 4: Run
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		noReport, _ := cmd.Flags().GetBool("no-report")
		source, _ := cmd.Flags().GetString("source")
		runCfg := buildRunConfig(cfg, args, source, noReport)

		result, err := pipeline.RunAnalysis(ctx, runCfg, fetcher, store)
		if err != nil {
			return err
		}

		// Step 5: Present and notify
		report.PrintSummary(os.Stdout, result.Run)
		if result.RunDir != "" {
			fmt.Printf("[+] Reports written to %s\n", result.RunDir)
		}

		notify := &pipeline.NotifyConfig{WebhookURL: cfg.Notify.WebhookURL}
		if err := notify.SendCompletion(ctx, result); err != nil {
			fmt.Printf("[!] Warning: completion notification failed: %v\n", err)
		}

		return nil
	},
}

// applyAnalyzeFlags overrides config values with flags the user set explicitly.
func applyAnalyzeFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		c.InputFile, _ = flags.GetString("input")
	}
	if flags.Changed("num-targets") {
		c.NumTargets, _ = flags.GetInt("num-targets")
	}
	if flags.Changed("num-headers") {
		c.NumHeaders, _ = flags.GetInt("num-headers")
	}
	if flags.Changed("scheme") {
		c.DefaultScheme, _ = flags.GetString("scheme")
	}
	if flags.Changed("concurrency") {
		c.Fetch.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("timeout") {
		c.Fetch.Timeout, _ = flags.GetString("timeout")
	}
	if flags.Changed("fingerprint") {
		c.Fetch.TLSFingerprint, _ = flags.GetString("fingerprint")
	}
	if flags.Changed("skip-status-line") {
		c.Fetch.SkipStatusLine, _ = flags.GetBool("skip-status-line")
	}
	if flags.Changed("insecure") {
		c.Fetch.InsecureSkipVerify, _ = flags.GetBool("insecure")
	}
}

// buildRunConfig maps the loaded configuration onto a single pipeline run.
func buildRunConfig(c *config.Config, targets []string, source string, noReport bool) pipeline.RunConfig {
	runCfg := pipeline.RunConfig{
		Source:        source,
		InputFile:     c.InputFile,
		Targets:       targets,
		NumTargets:    c.NumTargets,
		NumHeaders:    c.NumHeaders,
		DefaultScheme: c.DefaultScheme,
		Scope: pipeline.ScopeConfig{
			AllowedDomains: c.Scope.AllowedDomains,
			AllowedCIDRs:   c.Scope.AllowedCIDRs,
		},
		Coordinator: fetch.CoordinatorConfig{Concurrency: c.Fetch.Concurrency},
		RunDir:      c.RunDir,
		OnStageStart: func(name string, index, total int) {
			fmt.Printf("[*] Stage %d/%d: %s...\n", index+1, total, name)
		},
		OnStageDone: func(name string, index, total int, err error, elapsed time.Duration) {
			if err != nil {
				fmt.Printf("[!] Stage %d/%d: %s FAILED (%s)\n",
					index+1, total, name, elapsed.Round(time.Millisecond))
			} else {
				fmt.Printf("[+] Stage %d/%d: %s complete (%s)\n",
					index+1, total, name, elapsed.Round(time.Millisecond))
			}
		},
	}
	if noReport {
		runCfg.RunDir = ""
	}
	return runCfg
}

func init() {
	analyzeCmd.Flags().StringP("input", "i", "", "target list file (overrides input_file)")
	analyzeCmd.Flags().IntP("num-targets", "n", 0, "number of list entries to read, 0 for all")
	analyzeCmd.Flags().IntP("num-headers", "k", 0, "size of the top-N header ranking")
	analyzeCmd.Flags().String("scheme", "", "scheme for entries without one (http or https)")
	analyzeCmd.Flags().IntP("concurrency", "c", 0, "maximum fetches in flight")
	analyzeCmd.Flags().String("timeout", "", "per-target timeout, e.g. 5s")
	analyzeCmd.Flags().String("fingerprint", "", "TLS ClientHello fingerprint (golang, chrome, firefox, safari)")
	analyzeCmd.Flags().Bool("skip-status-line", false, "do not count the HTTP status line as a header")
	analyzeCmd.Flags().Bool("insecure", false, "skip TLS certificate verification")
	analyzeCmd.Flags().String("preset", "", "run profile (see 'headerstat presets')")
	analyzeCmd.Flags().String("source", "", "name recorded in run history (default: input file name)")
	analyzeCmd.Flags().Bool("no-report", false, "do not write report files")
	rootCmd.AddCommand(analyzeCmd)
}
