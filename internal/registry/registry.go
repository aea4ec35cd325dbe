// Package registry tracks every spawned worker process and owns their
// termination. Workers are separate OS processes started by re-execing the
// procwave binary with the hidden "worker" subcommand; the registry is the
// only component that ever touches a process handle.
package registry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/procwave/procwave/internal/logging"
	"github.com/procwave/procwave/internal/worker"
)

// ErrRegistryClosed is returned by spawn calls once teardown has begun.
// The spawn/terminate race is closed with the registry mutex: a spawn
// either lands before the drain and is killed with the rest, or it fails
// with this error. Nothing leaks either way.
var ErrRegistryClosed = errors.New("registry: closed, no further spawns")

// DefaultReapTimeout bounds how long TerminateAll waits per handle for the
// process to fully exit.
const DefaultReapTimeout = time.Second

// Outcome classifies what termination did to a single handle.
type Outcome int

const (
	// OutcomeKilled means the worker was killed and reaped in time.
	OutcomeKilled Outcome = iota
	// OutcomeAlreadyDead means the worker had exited before teardown.
	OutcomeAlreadyDead
	// OutcomeLeaked means the worker did not exit within the reap
	// timeout. Accepted and logged, never retried.
	OutcomeLeaked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeKilled:
		return "killed"
	case OutcomeAlreadyDead:
		return "already-dead"
	case OutcomeLeaked:
		return "leaked"
	default:
		return "unknown"
	}
}

// Summary aggregates per-handle outcomes of one TerminateAll pass.
type Summary struct {
	Killed      int
	AlreadyDead int
	Leaked      int
}

// Total returns the number of handles the pass targeted.
func (s Summary) Total() int {
	return s.Killed + s.AlreadyDead + s.Leaked
}

// Handle represents one spawned worker process. Owned exclusively by the
// registry for its lifetime.
type Handle struct {
	ID   string
	Kind worker.Kind
	Wave int
	PID  int

	cmd     *exec.Cmd
	stdin   io.Closer
	done    chan struct{}
	waitErr error
}

// reap waits for the process so the kernel can release it, then marks the
// handle dead.
func (h *Handle) reap() {
	h.waitErr = h.cmd.Wait()
	close(h.done)
}

// Alive reports whether the process has not yet been reaped.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Exited is closed once the process has been reaped.
func (h *Handle) Exited() <-chan struct{} {
	return h.done
}

// Registry owns the set of live worker handles.
type Registry struct {
	log         *logging.Logger
	reapTimeout time.Duration

	// newCommand builds the unstarted command for a worker of the given
	// kind; arg is load percent for CPU, size in MB for memory. Replaced
	// in tests.
	newCommand func(kind worker.Kind, arg int) *exec.Cmd

	mu      sync.Mutex
	handles []*Handle
	closed  bool
}

// New creates a registry whose workers re-exec the current binary.
func New(log *logging.Logger) (*Registry, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolving own binary path: %w", err)
	}

	r := newWith(log, func(kind worker.Kind, arg int) *exec.Cmd {
		switch kind {
		case worker.KindMemory:
			return exec.Command(self, "worker", "memory", "--size-mb", strconv.Itoa(arg))
		default:
			return exec.Command(self, "worker", "cpu", "--load", strconv.Itoa(arg))
		}
	})
	return r, nil
}

// NewForCommand creates a registry that runs the given command in place of
// real workers. Used by tests that need live child processes without
// re-execing the procwave binary.
func NewForCommand(log *logging.Logger, newCommand func() *exec.Cmd) (*Registry, error) {
	if newCommand == nil {
		return nil, errors.New("registry: nil command factory")
	}
	return newWith(log, func(worker.Kind, int) *exec.Cmd {
		return newCommand()
	}), nil
}

func newWith(log *logging.Logger, newCommand func(worker.Kind, int) *exec.Cmd) *Registry {
	return &Registry{
		log:         log.WithField("component", "registry"),
		reapTimeout: DefaultReapTimeout,
		newCommand:  newCommand,
	}
}

// SpawnCPU starts one CPU worker process and registers it. wave is kept on
// the handle for diagnostics only.
func (r *Registry) SpawnCPU(loadPercent, wave int) (*Handle, error) {
	return r.spawn(worker.KindCPU, loadPercent, wave)
}

// SpawnMemory starts one memory worker process and registers it.
func (r *Registry) SpawnMemory(sizeMB, wave int) (*Handle, error) {
	return r.spawn(worker.KindMemory, sizeMB, wave)
}

func (r *Registry) spawn(kind worker.Kind, arg, wave int) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}

	cmd := r.newCommand(kind, arg)

	// Own process group so a worker cannot ride on the controller's
	// terminal signals.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// The held-open pipe doubles as an orphan guard: if the controller
	// dies without killing anyone, the worker sees EOF and stops itself.
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("spawn %s worker: %w", kind, err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("spawn %s worker: %w", kind, err)
	}

	h := &Handle{
		ID:    uuid.New().String(),
		Kind:  kind,
		Wave:  wave,
		PID:   cmd.Process.Pid,
		cmd:   cmd,
		stdin: stdin,
		done:  make(chan struct{}),
	}
	r.handles = append(r.handles, h)
	go h.reap()

	r.log.Debug("worker spawned", map[string]interface{}{
		"worker": h.ID, "kind": string(kind), "pid": h.PID, "wave": wave,
	})
	return h, nil
}

// TerminateAll force-kills every tracked worker and waits up to the reap
// timeout per handle for it to exit. Per-handle failures are swallowed: a
// single unresponsive worker never blocks teardown of the rest. Idempotent;
// once called, further spawns fail with ErrRegistryClosed.
func (r *Registry) TerminateAll() Summary {
	r.mu.Lock()
	r.closed = true
	handles := r.handles
	r.handles = nil
	r.mu.Unlock()

	outcomes := make([]Outcome, len(handles))
	for i, h := range handles {
		if !h.Alive() {
			outcomes[i] = OutcomeAlreadyDead
			continue
		}
		h.stdin.Close()
		if err := h.cmd.Process.Kill(); err != nil {
			r.log.Debug("kill failed", map[string]interface{}{
				"worker": h.ID, "pid": h.PID, "error": err.Error(),
			})
		}
	}

	var sum Summary
	for i, h := range handles {
		if outcomes[i] == OutcomeAlreadyDead {
			sum.AlreadyDead++
			continue
		}
		select {
		case <-h.done:
			sum.Killed++
		case <-time.After(r.reapTimeout):
			sum.Leaked++
			r.log.Warn("worker did not exit within reap timeout", map[string]interface{}{
				"worker": h.ID, "kind": string(h.Kind), "pid": h.PID, "wave": h.Wave,
			})
		}
	}

	if sum.Total() > 0 {
		r.log.Info("teardown complete", map[string]interface{}{
			"killed": sum.Killed, "already_dead": sum.AlreadyDead, "leaked": sum.Leaked,
		})
	}
	return sum
}

// AnyAlive reports whether any tracked worker process is still running.
func (r *Registry) AnyAlive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range r.handles {
		if h.Alive() {
			return true
		}
	}
	return false
}

// Tracked returns the number of currently registered handles.
func (r *Registry) Tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Live returns the number of registered handles still running.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := 0
	for _, h := range r.handles {
		if h.Alive() {
			live++
		}
	}
	return live
}
