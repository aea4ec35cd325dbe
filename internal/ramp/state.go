package ramp

import "fmt"

// State is the controller's lifecycle state.
type State string

const (
	// StateIdle means Run has not been called yet.
	StateIdle State = "idle"
	// StateRamping means waves are being spawned.
	StateRamping State = "ramping"
	// StateStopped means the stop flag (or a spawn failure) ended the ramp.
	StateStopped State = "stopped"
	// StateCompleted means the ramp ran past the ceiling with no stop.
	StateCompleted State = "completed"
)

// validTransitions maps from-state to allowed to-states.
var validTransitions = map[State]map[State]bool{
	StateIdle: {
		StateRamping: true, // Idle → Ramping (Run called)
	},
	StateRamping: {
		StateStopped:   true, // Ramping → Stopped (stop flag or spawn failure)
		StateCompleted: true, // Ramping → Completed (wave size passed the ceiling)
	},
	// Terminal states (no transitions allowed)
	StateStopped:   {},
	StateCompleted: {},
}

// ValidateTransition checks whether a state transition is legal.
func ValidateTransition(from, to State) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// IsTerminal returns true once no further transitions are possible.
func IsTerminal(s State) bool {
	return s == StateStopped || s == StateCompleted
}
