package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_CanTransition(t *testing.T) {
	tests := []struct {
		from State
		to   State
		want bool
	}{
		{StateIdle, StatePlanning, true},
		{StatePlanning, StateExecuting, true},
		{StatePlanning, StateFailed, true},
		{StateExecuting, StateVerifying, true},
		{StateVerifying, StateCompleted, true},

		{StateIdle, StateExecuting, false},
		{StateIdle, StateFailed, false},
		{StateExecuting, StateFailed, false},
		{StateVerifying, StateFailed, false},
		{StateExecuting, StatePlanning, false},
		{StateCompleted, StatePlanning, false},
		{StateCompleted, StateFailed, false},
		{StateFailed, StatePlanning, false},
		{StateFailed, StateCompleted, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransition(tt.to)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestState_Terminal(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateIdle.Terminal())
	assert.False(t, StatePlanning.Terminal())
	assert.False(t, StateExecuting.Terminal())
	assert.False(t, StateVerifying.Terminal())
}
