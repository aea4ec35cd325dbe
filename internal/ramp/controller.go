// Package ramp drives the geometric wave schedule: 1, 2, 4, ... worker
// pairs per wave up to the configured ceiling, pausing the wave interval
// between doublings. The controller only creates load; destroying it is
// the shutdown coordinator's job, never the ramp's.
package ramp

import (
	"fmt"
	"sync"
	"time"

	"github.com/procwave/procwave/internal/logging"
	"github.com/procwave/procwave/internal/stopflag"
)

// StopSlice is the granularity at which the inter-wave wait re-checks the
// stop flag. An external stop is honored within one slice, not at wave
// granularity.
const StopSlice = 100 * time.Millisecond

// Spawner is what the controller needs from the worker registry. The
// controller never touches the returned handles, so none are exposed here.
type Spawner interface {
	SpawnCPU(loadPercent, wave int) error
	SpawnMemory(sizeMB, wave int) error
}

// Config carries the ramp parameters.
type Config struct {
	// Ceiling is the maximum wave size, not a wave count. The produced
	// sizes are 1, 2, 4, ... up to the largest power of two <= Ceiling.
	Ceiling int
	// Interval is the pause between doublings.
	Interval time.Duration
	// MemoryMB is the allocation size per memory worker.
	MemoryMB int
	// FullBusy selects the unthrottled CPU strategy; when false,
	// LoadPercent drives a duty-cycle loop instead.
	FullBusy    bool
	LoadPercent int
	// DryRun performs the wave/interval timing but spawns nothing.
	DryRun bool
}

// Controller runs the ramp state machine Idle → Ramping → Stopped|Completed.
type Controller struct {
	cfg     Config
	stop    *stopflag.Flag
	spawner Spawner
	log     *logging.Logger

	// onWave is invoked after each wave's spawns with the wave size.
	// Observational only (metrics); nil is fine.
	onWave func(size int)

	mu       sync.Mutex
	state    State
	waveSize int
	wavesRun int
}

// New creates a controller in the Idle state.
func New(cfg Config, stop *stopflag.Flag, spawner Spawner, log *logging.Logger) *Controller {
	if cfg.Ceiling < 1 {
		cfg.Ceiling = 1
	}
	if cfg.LoadPercent < 1 || cfg.LoadPercent > 100 {
		cfg.LoadPercent = 100
	}
	return &Controller{
		cfg:     cfg,
		stop:    stop,
		spawner: spawner,
		log:     log.WithField("component", "ramp"),
		state:   StateIdle,
	}
}

// SetWaveHook installs the per-wave observer. Must be called before Run.
func (c *Controller) SetWaveHook(fn func(size int)) {
	c.onWave = fn
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// WaveSize returns the size of the most recent wave, 0 before the first.
func (c *Controller) WaveSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waveSize
}

// WavesRun returns how many waves have been issued.
func (c *Controller) WavesRun() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wavesRun
}

// Run executes the ramp to a terminal state. It returns an error only for
// the one upward-propagating condition, spawn failure; observing the stop
// flag is a normal exit. Run never terminates workers.
func (c *Controller) Run() error {
	if err := c.transition(StateRamping); err != nil {
		return err
	}
	c.log.Info("ramp started", map[string]interface{}{
		"ceiling": c.cfg.Ceiling, "interval": c.cfg.Interval.String(), "dry_run": c.cfg.DryRun,
	})

	n := 1
	for n <= c.cfg.Ceiling {
		if c.stop.IsSet() {
			return c.finish(StateStopped)
		}

		// A wave's own spawns run without an intermediate stop check;
		// waves are not interruptible mid-flight.
		if !c.cfg.DryRun {
			if err := c.spawnWave(n); err != nil {
				c.finish(StateStopped)
				return fmt.Errorf("ramp wave of size %d: %w", n, err)
			}
		}
		c.recordWave(n)

		if !c.sleepInterval() {
			return c.finish(StateStopped)
		}
		n *= 2
	}

	return c.finish(StateCompleted)
}

// spawnWave starts n CPU and n memory workers, interleaved.
func (c *Controller) spawnWave(n int) error {
	wave := c.WavesRun() + 1
	load := 100
	if !c.cfg.FullBusy {
		load = c.cfg.LoadPercent
	}

	for i := 0; i < n; i++ {
		if err := c.spawner.SpawnCPU(load, wave); err != nil {
			return err
		}
		if err := c.spawner.SpawnMemory(c.cfg.MemoryMB, wave); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) recordWave(n int) {
	c.mu.Lock()
	c.waveSize = n
	c.wavesRun++
	c.mu.Unlock()

	c.log.Debug("wave issued", map[string]interface{}{"size": n})
	if c.onWave != nil {
		c.onWave(n)
	}
}

// sleepInterval waits the configured interval in StopSlice increments,
// returning false as soon as the stop flag is observed.
func (c *Controller) sleepInterval() bool {
	remaining := c.cfg.Interval
	for remaining > 0 {
		if c.stop.IsSet() {
			return false
		}
		d := StopSlice
		if remaining < d {
			d = remaining
		}
		time.Sleep(d)
		remaining -= d
	}
	return true
}

func (c *Controller) transition(to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ValidateTransition(c.state, to); err != nil {
		return err
	}
	c.state = to
	return nil
}

func (c *Controller) finish(to State) error {
	if err := c.transition(to); err != nil {
		return err
	}
	c.log.Info("ramp finished", map[string]interface{}{"state": string(to), "waves": c.WavesRun()})
	return nil
}
