package cmd

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/procwave/procwave/internal/config"
	"github.com/procwave/procwave/internal/console"
	"github.com/procwave/procwave/internal/hostinfo"
	"github.com/procwave/procwave/internal/logging"
	"github.com/procwave/procwave/internal/observe"
	"github.com/procwave/procwave/internal/ramp"
	"github.com/procwave/procwave/internal/registry"
	"github.com/procwave/procwave/internal/shutdown"
	"github.com/procwave/procwave/internal/stopflag"
)

// harness wires one run's components together: the stop flag, registry,
// coordinator and metrics live for the whole process; ramp controllers are
// created per start request.
type harness struct {
	cfg     config.Config
	log     *logging.Logger
	stop    *stopflag.Flag
	reg     *registry.Registry
	metrics *observe.Metrics
	coord   *shutdown.Coordinator

	mu   sync.Mutex
	ctrl *ramp.Controller
}

// newHarness builds the run context and installs the signal handlers.
func newHarness(cfg config.Config, log *logging.Logger) (*harness, error) {
	stop := stopflag.New()

	reg, err := registry.New(log)
	if err != nil {
		return nil, fmt.Errorf("creating worker registry: %w", err)
	}

	metrics := observe.NewMetrics()
	coord := shutdown.New(stop, &observe.InstrumentedTerminator{Registry: reg, Metrics: metrics}, log)

	h := &harness{
		cfg:     cfg,
		log:     log,
		stop:    stop,
		reg:     reg,
		metrics: metrics,
		coord:   coord,
	}

	if cfg.MetricsAddr != "" {
		server := observe.NewServer(cfg.MetricsAddr, metrics, h.status, log)
		server.Start()
		coord.Register(server.Shutdown)
	}

	coord.HandleSignals()
	return h, nil
}

// startRamp runs one ramp to a terminal state, with the decorative console
// alongside. Workers stay running after it returns; only the coordinator
// tears them down.
func (h *harness) startRamp(cfg config.Config) error {
	ctrl := ramp.New(ramp.Config{
		Ceiling:     cfg.Ceiling,
		Interval:    cfg.Interval(),
		MemoryMB:    cfg.MemoryMB,
		FullBusy:    cfg.FullBusy,
		LoadPercent: cfg.LoadPercent,
		DryRun:      cfg.DryRun,
	}, h.stop, &observe.InstrumentedSpawner{Registry: h.reg, Metrics: h.metrics}, h.log)
	ctrl.SetWaveHook(h.metrics.ObserveWave)

	h.mu.Lock()
	h.ctrl = ctrl
	h.cfg = cfg
	h.mu.Unlock()

	h.logHeadroom(cfg)

	consoleDone := make(chan struct{})
	consoleStopped := make(chan struct{})
	go func() {
		console.New(os.Stdout, h.stop, cfg.Label, cfg.Interval(), cfg.DryRun).Run(consoleDone)
		close(consoleStopped)
	}()

	err := ctrl.Run()

	close(consoleDone)
	select {
	case <-consoleStopped:
	case <-time.After(time.Second):
	}

	if err != nil {
		h.log.Error("ramp aborted", map[string]interface{}{"error": err.Error()})
		return err
	}
	return nil
}

// logHeadroom samples the host before loading it so runs are explainable
// after the fact.
func (h *harness) logHeadroom(cfg config.Config) {
	snap := hostinfo.Collect()
	h.log.Info("host headroom", map[string]interface{}{
		"cpu_threads": snap.CPUThreads,
		"mem_free":    hostinfo.FormatRAM(snap.MemFreeBytes),
		"worker_mb":   cfg.MemoryMB,
		"dry_run":     cfg.DryRun,
	})
}

// status snapshots the harness for the /status endpoint.
func (h *harness) status() observe.Status {
	h.mu.Lock()
	ctrl := h.ctrl
	cfg := h.cfg
	h.mu.Unlock()

	st := observe.Status{
		State:          string(ramp.StateIdle),
		TrackedWorkers: h.reg.Tracked(),
		LiveWorkers:    h.reg.Live(),
		Label:          cfg.Label,
		DryRun:         cfg.DryRun,
	}
	if ctrl != nil {
		st.State = string(ctrl.State())
		st.WaveSize = ctrl.WaveSize()
		st.WavesRun = ctrl.WavesRun()
	}
	return st
}
