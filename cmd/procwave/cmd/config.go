package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/procwave/procwave/internal/config"
)

// configCmd groups configuration helpers.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize procwave configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file to $HOME/.procwave/config.yaml",
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(newLogger())

	strategy := "full-busy"
	if !cfg.FullBusy {
		strategy = "throttled"
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Setting", "Value")
	table.Append("Max wave size", strconv.Itoa(cfg.Ceiling))
	table.Append("Wave interval", fmt.Sprintf("%ds", cfg.IntervalSeconds))
	table.Append("Memory per worker", fmt.Sprintf("%dMB", cfg.MemoryMB))
	table.Append("CPU strategy", strategy)
	table.Append("Throttled load", fmt.Sprintf("%d%%", cfg.LoadPercent))
	table.Append("Dry-run", strconv.FormatBool(cfg.DryRun))
	table.Append("Label", cfg.Label)
	table.Append("Metrics address", cfg.MetricsAddr)
	table.Append("Log level", cfg.LogLevel)
	table.Render()
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}

	path := filepath.Join(dir, "config.yaml")
	if err := config.WriteDefaultFile(path); err != nil {
		return err
	}
	fmt.Printf("Wrote default config to %s\n", path)
	return nil
}
