// Package worker implements the resource-consumption loops that run inside
// spawned worker processes. The controlling process never runs these
// directly: it re-execs itself with the hidden "worker" subcommand so that
// every worker has its own address space and can be force-killed without
// touching controller state.
package worker

import (
	"io"
	"os"
	"time"

	"github.com/procwave/procwave/internal/stopflag"
)

// Kind labels which resource a worker consumes.
type Kind string

const (
	KindCPU    Kind = "cpu"
	KindMemory Kind = "memory"
)

const (
	// Slice bounds how long a throttled CPU worker goes without checking
	// the stop flag.
	Slice = 100 * time.Millisecond

	// memoryIdle is the sleep between stop checks once the block is held.
	memoryIdle = 500 * time.Millisecond

	blockSize = 1 << 20 // 1 MiB
	pageSize  = 4096
)

// RunCPU burns CPU until stop is set. loadPercent 100 runs an unconditional
// tight loop; anything lower duty-cycles inside fixed slices, busy for
// slice*load/100 and asleep for the remainder.
func RunCPU(loadPercent int, stop *stopflag.Flag) {
	if loadPercent >= 100 {
		for !stop.IsSet() {
		}
		return
	}

	busy := Slice * time.Duration(loadPercent) / 100
	for !stop.IsSet() {
		start := time.Now()
		spinFor(busy)
		if rem := Slice - time.Since(start); rem > 0 {
			time.Sleep(rem)
		}
	}
}

// spinFor busy-waits without yielding to the OS scheduler.
func spinFor(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

// RunMemory allocates and holds roughly sizeMB megabytes, then idles until
// stop is set. An unsatisfiable size makes the function return silently and
// the process exit clean. A hard OOM during the block loop can still kill
// the process outright; isolation confines that to this worker.
func RunMemory(sizeMB int, stop *stopflag.Flag) {
	blocks, ok := allocate(sizeMB)
	if !ok {
		return
	}

	for !stop.IsSet() {
		time.Sleep(memoryIdle)
	}

	// Keep the allocation reachable for the whole lifetime.
	_ = blocks
}

// allocate grabs sizeMB one-megabyte blocks and touches every page so the
// memory is actually resident, not just reserved. The recover catches
// slice-size panics only; a fatal runtime OOM is not interceptable.
func allocate(sizeMB int) (blocks [][]byte, ok bool) {
	defer func() {
		if recover() != nil {
			blocks, ok = nil, false
		}
	}()

	blocks = make([][]byte, 0, sizeMB)
	for i := 0; i < sizeMB; i++ {
		block := make([]byte, blockSize)
		for off := 0; off < blockSize; off += pageSize {
			block[off] = 1
		}
		blocks = append(blocks, block)
	}
	return blocks, true
}

// WatchParent sets stop when the reader hits EOF or an error. The registry
// wires the worker's stdin to a pipe it holds open for the controller's
// lifetime, so controller death stops orphaned workers even if the kill
// never arrived.
func WatchParent(r io.Reader, stop *stopflag.Flag) {
	buf := make([]byte, 1)
	for {
		if _, err := r.Read(buf); err != nil {
			stop.Set()
			return
		}
	}
}

// WatchStdin is WatchParent bound to the process's real stdin.
func WatchStdin(stop *stopflag.Flag) {
	WatchParent(os.Stdin, stop)
}
