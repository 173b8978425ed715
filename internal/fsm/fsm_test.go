package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirectHappyPath(t *testing.T) {
	s := StateWaitingForHandle

	next, err := DirectTransition(s, EventHandleFound)
	require.NoError(t, err)
	require.Equal(t, StateSettling, next)

	next, err = DirectTransition(next, EventSettled)
	require.NoError(t, err)
	require.Equal(t, StateMinimizing, next)

	next, err = DirectTransition(next, EventAttemptFailed)
	require.NoError(t, err)
	require.Equal(t, StateMinimizing, next)

	next, err = DirectTransition(next, EventMinimized)
	require.NoError(t, err)
	require.Equal(t, StateDone, next)
	require.True(t, Terminal(next))
}

func TestMonitorResetsAfterMinimize(t *testing.T) {
	s := StateWatching
	steps := []struct {
		event Event
		want  State
	}{
		{EventCandidateFound, StateTracking},
		{EventCandidateFound, StateTracking},
		{EventQuietElapsed, StateForcing},
		{EventMinimized, StateWatching},
		{EventCandidateFound, StateTracking},
		{EventQuietElapsed, StateForcing},
		{EventAttemptsExceeded, StateWatching},
		{EventRoundsExhausted, StateDone},
	}
	for _, step := range steps {
		next, err := MonitorTransition(s, step.event)
		require.NoError(t, err, "%s --(%s)", s, step.event)
		require.Equal(t, step.want, next)
		s = next
	}
}

func TestCancelFromAnyLiveStateAbandons(t *testing.T) {
	for _, state := range []State{StateWaitingForHandle, StateSettling, StateMinimizing} {
		next, err := DirectTransition(state, EventCanceled)
		require.NoError(t, err)
		require.Equal(t, StateAbandoned, next)
	}
	for _, state := range []State{StateWatching, StateTracking, StateForcing} {
		next, err := MonitorTransition(state, EventCanceled)
		require.NoError(t, err)
		require.Equal(t, StateAbandoned, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		machine func(State, Event) (State, error)
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "direct waiting settled invalid", machine: DirectTransition, state: StateWaitingForHandle, event: EventSettled, want: StateWaitingForHandle, wantErr: true},
		{name: "direct waiting exit abandons", machine: DirectTransition, state: StateWaitingForHandle, event: EventProcessExited, want: StateAbandoned},
		{name: "direct waiting timeout abandons", machine: DirectTransition, state: StateWaitingForHandle, event: EventHandleTimeout, want: StateAbandoned},
		{name: "direct settling window lost abandons", machine: DirectTransition, state: StateSettling, event: EventWindowLost, want: StateAbandoned},
		{name: "direct minimizing exhausted abandons", machine: DirectTransition, state: StateMinimizing, event: EventAttemptsExceeded, want: StateAbandoned},
		{name: "direct done is terminal", machine: DirectTransition, state: StateDone, event: EventHandleFound, want: StateDone, wantErr: true},
		{name: "direct abandoned ignores cancel", machine: DirectTransition, state: StateAbandoned, event: EventCanceled, want: StateAbandoned, wantErr: true},
		{name: "monitor watching quiet invalid", machine: MonitorTransition, state: StateWatching, event: EventQuietElapsed, want: StateWatching, wantErr: true},
		{name: "monitor tracking rounds abandons", machine: MonitorTransition, state: StateTracking, event: EventRoundsExhausted, want: StateAbandoned},
		{name: "monitor forcing candidate invalid", machine: MonitorTransition, state: StateForcing, event: EventCandidateFound, want: StateForcing, wantErr: true},
		{name: "monitor forcing window lost resets", machine: MonitorTransition, state: StateForcing, event: EventWindowLost, want: StateWatching},
		{name: "monitor done is terminal", machine: MonitorTransition, state: StateDone, event: EventCandidateFound, want: StateDone, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := tc.machine(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := DirectTransition(State("mystery"), EventHandleFound)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)

	_, err = MonitorTransition(State("mystery"), EventCandidateFound)
	require.ErrorContains(t, err, "unknown state")
}
