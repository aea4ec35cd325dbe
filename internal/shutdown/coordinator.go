// Package shutdown converts interrupt signals and explicit stop requests
// into a single idempotent, bounded-time teardown of every tracked worker.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/procwave/procwave/internal/logging"
	"github.com/procwave/procwave/internal/registry"
	"github.com/procwave/procwave/internal/stopflag"
)

// HookTimeout bounds the LIFO cleanup hooks run after worker teardown.
const HookTimeout = 5 * time.Second

// Terminator is the registry surface the coordinator depends on.
type Terminator interface {
	TerminateAll() registry.Summary
}

// Coordinator owns the one teardown path. Signal delivery and the menu's
// stop request both end up in Stop; whichever arrives first wins and the
// rest are no-ops.
type Coordinator struct {
	stop *stopflag.Flag
	term Terminator
	log  *logging.Logger

	mu    sync.Mutex
	hooks []func(context.Context) error

	once sync.Once
	done chan struct{}

	// exit is swapped out in tests.
	exit func(code int)
}

// New creates a coordinator bound to the run's stop flag and registry.
func New(stop *stopflag.Flag, term Terminator, log *logging.Logger) *Coordinator {
	return &Coordinator{
		stop: stop,
		term: term,
		log:  log.WithField("component", "shutdown"),
		done: make(chan struct{}),
		exit: os.Exit,
	}
}

// Register adds a cleanup hook run after worker teardown, LIFO.
func (c *Coordinator) Register(fn func(context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// Stop runs the teardown path exactly once: set the stop flag, terminate
// and reap every tracked worker, then run cleanup hooks. After it returns,
// no tracked worker is running, modulo the registry's per-handle reap
// timeout (stragglers are logged as leaked).
func (c *Coordinator) Stop() {
	c.once.Do(func() {
		c.stop.Set()

		sum := c.term.TerminateAll()
		c.log.Info("workers terminated", map[string]interface{}{
			"killed": sum.Killed, "already_dead": sum.AlreadyDead, "leaked": sum.Leaked,
		})

		c.runHooks()
		close(c.done)
	})
	<-c.done
}

func (c *Coordinator) runHooks() {
	c.mu.Lock()
	hooks := c.hooks
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), HookTimeout)
	defer cancel()

	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			c.log.Warn("cleanup hook failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// Done is closed once teardown has completed.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// HandleSignals installs the interrupt and termination handlers. On
// delivery it runs the teardown path and exits the process with success:
// interrupting the program always means a clean, bounded-time exit.
func (c *Coordinator) HandleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		c.log.Info("received signal, terminating workers", map[string]interface{}{"signal": sig.String()})
		c.Stop()
		c.log.Info("clean exit")
		c.exit(0)
	}()
}
