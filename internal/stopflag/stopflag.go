// Package stopflag provides the process-wide teardown flag shared by the
// ramp controller, the worker registry and the decorative console.
//
// The flag is set-once-effective: the first Set wins, repeated sets are
// no-ops, and it is never cleared within a run. Reads are lock-free and
// safe from any goroutine.
package stopflag

import "sync/atomic"

// Flag is a write-once boolean safe for concurrent unsynchronized reads.
type Flag struct {
	set atomic.Bool
}

// New returns an unset flag.
func New() *Flag {
	return &Flag{}
}

// Set marks the flag. It returns true only for the call that actually
// flipped the flag, so callers can key one-shot work off it.
func (f *Flag) Set() bool {
	return f.set.CompareAndSwap(false, true)
}

// IsSet reports whether teardown has begun.
func (f *Flag) IsSet() bool {
	return f.set.Load()
}
