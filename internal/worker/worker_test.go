package worker

import (
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/procwave/procwave/internal/stopflag"
)

func TestRunCPUBusyStopsWhenFlagSet(t *testing.T) {
	stop := stopflag.New()
	done := make(chan struct{})

	go func() {
		RunCPU(100, stop)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	stop.Set()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("busy CPU worker did not stop after flag was set")
	}
}

func TestRunCPUThrottledStopsWithinOneSlice(t *testing.T) {
	stop := stopflag.New()
	done := make(chan struct{})

	go func() {
		RunCPU(50, stop)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	stop.Set()

	select {
	case <-done:
	case <-time.After(3 * Slice):
		t.Fatal("throttled CPU worker did not stop within a slice bound")
	}
}

func TestRunMemoryHoldsThenStops(t *testing.T) {
	stop := stopflag.New()
	done := make(chan struct{})

	go func() {
		RunMemory(2, stop)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	stop.Set()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("memory worker did not stop after flag was set")
	}
}

func TestRunMemoryUnsatisfiableSizeReturns(t *testing.T) {
	stop := stopflag.New()
	done := make(chan struct{})

	go func() {
		RunMemory(math.MaxInt, stop)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("memory worker with unsatisfiable size did not return")
	}
	assert.False(t, stop.IsSet(), "failed allocation must end the worker without a stop")
}

func TestAllocateUnsatisfiableSizeFailsCleanly(t *testing.T) {
	blocks, ok := allocate(math.MaxInt)
	assert.False(t, ok)
	assert.Nil(t, blocks)
}

func TestAllocateSmallBlock(t *testing.T) {
	blocks, ok := allocate(3)
	assert.True(t, ok)
	assert.Len(t, blocks, 3)
	for _, b := range blocks {
		assert.Len(t, b, blockSize)
	}
}

func TestWatchParentStopsOnEOF(t *testing.T) {
	stop := stopflag.New()
	r, w := io.Pipe()

	done := make(chan struct{})
	go func() {
		WatchParent(r, stop)
		close(done)
	}()

	assert.False(t, stop.IsSet())
	w.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not observe pipe close")
	}
	assert.True(t, stop.IsSet())
}
