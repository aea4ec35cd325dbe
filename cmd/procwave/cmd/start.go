package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// startCmd runs one ramp non-interactively and then holds the load until
// an interrupt tears everything down.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ramp and hold the load until interrupted",
	Long: `Start spawns doubling waves of CPU and memory workers up to the
configured ceiling, then keeps them running. Press Ctrl-C (or send
SIGTERM) to terminate every worker and exit cleanly.`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().Int("ceiling", 0, "maximum wave size (default 16384)")
	startCmd.Flags().Int("interval", -1, "seconds between wave doublings (default 2)")
	startCmd.Flags().Int("memory-mb", 0, "memory per worker in MB (default 128)")
	startCmd.Flags().Bool("throttle", false, "duty-cycle CPU workers instead of full-busy")
	startCmd.Flags().Int("load", 0, "CPU load percent when throttled (default 98)")
	startCmd.Flags().Bool("dry-run", false, "rehearse wave timing without spawning workers")
	startCmd.Flags().String("label", "", "cosmetic area label for the console")
	startCmd.Flags().String("metrics-addr", "", "serve /metrics and /status on this address (e.g. :9090)")

	viper.BindPFlag("dry_run", startCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("metrics_addr", startCmd.Flags().Lookup("metrics-addr"))
}

func runStart(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg := loadConfig(log)

	// Flags override config only when actually set; their zero values are
	// out of range on purpose so the documented defaults win otherwise.
	if v, _ := cmd.Flags().GetInt("ceiling"); v > 0 {
		cfg.Ceiling = v
	}
	if v, _ := cmd.Flags().GetInt("interval"); v >= 0 {
		cfg.IntervalSeconds = v
	}
	if v, _ := cmd.Flags().GetInt("memory-mb"); v > 0 {
		cfg.MemoryMB = v
	}
	if throttle, _ := cmd.Flags().GetBool("throttle"); throttle {
		cfg.FullBusy = false
	}
	if v, _ := cmd.Flags().GetInt("load"); v > 0 {
		cfg.LoadPercent = v
	}
	if v, _ := cmd.Flags().GetString("label"); v != "" {
		cfg.Label = v
	}
	cfg, notes := cfg.Sanitize()
	for _, note := range notes {
		log.Warn("invalid config input", map[string]interface{}{"note": note})
	}

	h, err := newHarness(cfg, log)
	if err != nil {
		return err
	}

	if err := h.startRamp(cfg); err != nil {
		// The ramp cannot proceed; tear down what was already spawned.
		h.coord.Stop()
		return err
	}

	fmt.Println("\n[*] Ramp finished or stopped.")
	fmt.Println("[*] Workers keep running. Press Ctrl+C to terminate them and exit.")
	<-h.coord.Done()
	return nil
}
