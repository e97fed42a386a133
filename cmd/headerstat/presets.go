package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hakim/headerstat/internal/pipeline"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in run profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		presets := pipeline.BuiltinPresets()
		fmt.Printf("  %-10s  %-8s  %-8s  %-8s  %s\n", "Name", "Targets", "Top N", "Timeout", "Description")
		for _, name := range pipeline.PresetNames() {
			p := presets[name]
			targets := "all"
			if p.NumTargets > 0 {
				targets = fmt.Sprintf("%d", p.NumTargets)
			}
			fmt.Printf("  %-10s  %-8s  %-8d  %-8s  %s\n", p.Name, targets, p.NumHeaders, p.Timeout, p.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
