package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hakim/headerstat/internal/config"
	"github.com/hakim/headerstat/internal/storage"
)

var (
	initForce bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize headerstat with default configuration",
	Long: `Creates a default configuration file (headerstat.yaml), the run directory,
and the database used to record run history.

This is typically the first command you run when setting up headerstat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := filepath.Join(initDir, "headerstat.yaml")

		// Check if config already exists
		if _, err := os.Stat(configPath); err == nil && !initForce {
			return fmt.Errorf("config file already exists at %s. Use --force to overwrite", configPath)
		}

		if err := storage.EnsureDir(initDir); err != nil {
			return fmt.Errorf("failed to create %s: %w", initDir, err)
		}
		if err := config.WriteDefault(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		fmt.Printf("Created %s with default configuration\n", configPath)

		// Load the config we just created to get paths
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		runDir := resolvePath(initDir, cfg.RunDir)
		if err := storage.EnsureDir(runDir); err != nil {
			return fmt.Errorf("failed to create run directory: %w", err)
		}
		fmt.Printf("Created run directory: %s\n", runDir)

		dbPath := resolvePath(initDir, cfg.DBPath)
		store, err := storage.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()
		fmt.Printf("Initialized database: %s\n", dbPath)

		fmt.Println()
		fmt.Println("headerstat initialized successfully!")
		fmt.Printf("Point input_file at a target list, then run 'headerstat analyze'.\n")

		return nil
	},
}

// resolvePath interprets relative config paths against dir.
func resolvePath(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "output directory")
	rootCmd.AddCommand(initCmd)
}
