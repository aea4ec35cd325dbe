package cmd

import (
	"github.com/spf13/cobra"

	"github.com/procwave/procwave/internal/stopflag"
	"github.com/procwave/procwave/internal/worker"
)

// workerCmd is the re-exec entry point for worker processes. It is hidden:
// only the registry invokes it. Workers run until force-killed; the stdin
// watcher is a fallback that stops them if the controller disappears.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Run a single resource worker (internal)",
	Hidden: true,
}

var workerCPUCmd = &cobra.Command{
	Use:   "cpu",
	Short: "Consume CPU until killed",
	RunE: func(cmd *cobra.Command, args []string) error {
		load, _ := cmd.Flags().GetInt("load")
		if load < 1 || load > 100 {
			load = 100
		}

		stop := stopflag.New()
		go worker.WatchStdin(stop)
		worker.RunCPU(load, stop)
		return nil
	},
}

var workerMemoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Hold memory until killed",
	RunE: func(cmd *cobra.Command, args []string) error {
		sizeMB, _ := cmd.Flags().GetInt("size-mb")
		if sizeMB < 1 {
			sizeMB = 1
		}

		stop := stopflag.New()
		go worker.WatchStdin(stop)
		// An unsatisfiable size makes RunMemory return silently and the
		// process exit clean.
		worker.RunMemory(sizeMB, stop)
		return nil
	},
}

func init() {
	workerCPUCmd.Flags().Int("load", 100, "CPU load percent")
	workerMemoryCmd.Flags().Int("size-mb", 128, "allocation size in MB")

	workerCmd.AddCommand(workerCPUCmd)
	workerCmd.AddCommand(workerMemoryCmd)
	rootCmd.AddCommand(workerCmd)
}
