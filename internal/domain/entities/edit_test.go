package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_CanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "pending to published", from: StatePending, to: StatePublished, expected: true},
		{name: "pending to rejected", from: StatePending, to: StateRejected, expected: true},
		{name: "pending to pending", from: StatePending, to: StatePending, expected: false},
		{name: "published to rejected", from: StatePublished, to: StateRejected, expected: false},
		{name: "rejected to published", from: StateRejected, to: StatePublished, expected: false},
		{name: "published to pending", from: StatePublished, to: StatePending, expected: false},
		{name: "rejected to pending", from: StateRejected, to: StatePending, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransition(tt.to))
		})
	}
}

func TestState_Valid(t *testing.T) {
	assert.True(t, StatePending.Valid())
	assert.True(t, StatePublished.Valid())
	assert.True(t, StateRejected.Valid())
	assert.False(t, State("approved").Valid())
	assert.False(t, State("").Valid())
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Action
		wantErr bool
	}{
		{name: "form approve label", input: "Approve", want: ActionApprove},
		{name: "form reject label", input: "Reject", want: ActionReject},
		{name: "lowercase approve", input: "approve", want: ActionApprove},
		{name: "padded reject", input: "  reject ", want: ActionReject},
		{name: "unknown", input: "publish", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownAction)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAction_TargetState(t *testing.T) {
	assert.Equal(t, StatePublished, ActionApprove.TargetState())
	assert.Equal(t, StateRejected, ActionReject.TargetState())
}
