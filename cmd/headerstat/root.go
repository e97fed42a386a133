package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hakim/headerstat/internal/config"
	"github.com/hakim/headerstat/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	logJSON  bool
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "headerstat",
	Short: "Response header statistics across a list of websites",
	Long: `headerstat sends a minimal HEAD request to every host in a target list,
collects the response headers, and reports the most common header names and the
share of responses that carry all of them.

Runs are recorded in a local database so results can be listed and compared
over time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		skipConfig := map[string]bool{
			"init":    true,
			"help":    true,
			"version": true,
			"presets": true,
		}

		if !skipConfig[cmd.Name()] {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
		}

		level, useJSON := logLevel, logJSON
		if cfg != nil {
			if !cmd.Flags().Changed("log-level") {
				level = cfg.Log.Level
			}
			if !cmd.Flags().Changed("log-json") {
				useJSON = cfg.Log.JSON
			}
		}
		return logging.Setup(level, useJSON)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: search for headerstat.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON format")

	// Version flag
	rootCmd.Version = "0.1.0-dev"
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
