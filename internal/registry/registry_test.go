package registry

import (
	"io"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procwave/procwave/internal/logging"
	"github.com/procwave/procwave/internal/worker"
)

func testLogger() *logging.Logger {
	l := logging.New(logging.ERROR, false)
	l.SetOutput(io.Discard)
	return l
}

// sleeperRegistry spawns long-sleeping processes in place of real workers.
func sleeperRegistry() *Registry {
	return newWith(testLogger(), func(worker.Kind, int) *exec.Cmd {
		return exec.Command("sleep", "30")
	})
}

func TestSpawnRegistersAndTerminateAllReaps(t *testing.T) {
	r := sleeperRegistry()

	h, err := r.SpawnCPU(100, 1)
	require.NoError(t, err)
	assert.Equal(t, worker.KindCPU, h.Kind)
	assert.Equal(t, 1, h.Wave)
	assert.NotZero(t, h.PID)
	assert.NotEmpty(t, h.ID)

	_, err = r.SpawnMemory(128, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, r.Tracked())
	assert.True(t, r.AnyAlive())

	sum := r.TerminateAll()
	assert.Equal(t, 2, sum.Killed)
	assert.Zero(t, sum.Leaked)
	assert.False(t, r.AnyAlive())
	assert.Zero(t, r.Tracked())
}

func TestTerminateAllIsIdempotent(t *testing.T) {
	r := sleeperRegistry()

	_, err := r.SpawnCPU(100, 1)
	require.NoError(t, err)

	first := r.TerminateAll()
	assert.Equal(t, 1, first.Total())

	second := r.TerminateAll()
	assert.Zero(t, second.Total(), "already-reaped handles must not be targeted again")
}

func TestTerminateAllOnEmptyRegistryIsNoop(t *testing.T) {
	r := sleeperRegistry()
	assert.Zero(t, r.TerminateAll().Total())
	assert.False(t, r.AnyAlive())
}

func TestSpawnAfterTerminateFails(t *testing.T) {
	r := sleeperRegistry()
	r.TerminateAll()

	_, err := r.SpawnCPU(100, 1)
	assert.ErrorIs(t, err, ErrRegistryClosed)
}

func TestWorkerThatExitsOnItsOwnIsAlreadyDead(t *testing.T) {
	r := newWith(testLogger(), func(worker.Kind, int) *exec.Cmd {
		return exec.Command("true")
	})

	h, err := r.SpawnMemory(1, 1)
	require.NoError(t, err)

	select {
	case <-h.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("short-lived worker was never reaped")
	}

	assert.False(t, r.AnyAlive())
	assert.Equal(t, 1, r.Tracked(), "dead handle stays tracked until termination removes it")

	sum := r.TerminateAll()
	assert.Equal(t, 1, sum.AlreadyDead)
	assert.Zero(t, sum.Killed)
}

func TestMemoryWorkerThatDiesEarlyIsAbsentFromAnyAlive(t *testing.T) {
	// Models a memory worker whose allocation failed: the process gives up
	// and exits zero almost immediately after spawn.
	r := newWith(testLogger(), func(worker.Kind, int) *exec.Cmd {
		return exec.Command("sh", "-c", "exit 0")
	})

	h, err := r.SpawnMemory(1<<30, 1)
	require.NoError(t, err)
	assert.Equal(t, worker.KindMemory, h.Kind)

	select {
	case <-h.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("early-exiting memory worker was never reaped")
	}

	assert.False(t, r.AnyAlive())
	sum := r.TerminateAll()
	assert.Equal(t, 1, sum.AlreadyDead)
	assert.Zero(t, sum.Killed)
	assert.Zero(t, sum.Leaked)
}

func TestSpawnFailureSurfacesError(t *testing.T) {
	r := newWith(testLogger(), func(worker.Kind, int) *exec.Cmd {
		return exec.Command("/nonexistent/procwave-worker-binary")
	})

	_, err := r.SpawnCPU(100, 1)
	assert.Error(t, err)
	assert.Zero(t, r.Tracked(), "failed spawn must not register a handle")
}

func TestConcurrentSpawnAndTerminateDoesNotDeadlock(t *testing.T) {
	r := sleeperRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(wave int) {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				_, err := r.SpawnCPU(100, wave)
				if err != nil {
					assert.ErrorIs(t, err, ErrRegistryClosed)
					return
				}
			}
		}(i + 1)
	}

	time.Sleep(10 * time.Millisecond)
	r.TerminateAll()
	wg.Wait()

	// Any spawn that won the race was registered and then torn down by a
	// later idempotent pass; nothing may still be alive or tracked.
	r.TerminateAll()
	assert.False(t, r.AnyAlive())
	assert.Zero(t, r.Tracked())
}
