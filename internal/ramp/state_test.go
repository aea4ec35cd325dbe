package ramp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTransitions(t *testing.T) {
	assert.NoError(t, ValidateTransition(StateIdle, StateRamping))
	assert.NoError(t, ValidateTransition(StateRamping, StateStopped))
	assert.NoError(t, ValidateTransition(StateRamping, StateCompleted))
}

func TestInvalidTransitions(t *testing.T) {
	assert.Error(t, ValidateTransition(StateIdle, StateCompleted))
	assert.Error(t, ValidateTransition(StateStopped, StateRamping))
	assert.Error(t, ValidateTransition(StateCompleted, StateRamping))
	assert.Error(t, ValidateTransition(State("bogus"), StateRamping))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(StateIdle))
	assert.False(t, IsTerminal(StateRamping))
	assert.True(t, IsTerminal(StateStopped))
	assert.True(t, IsTerminal(StateCompleted))
}
