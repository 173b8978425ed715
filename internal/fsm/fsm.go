// Package fsm defines the window-minimizer state machines as pure transition
// tables. Timing and OS calls live in the window package.
package fsm

import "fmt"

type State string

type Event string

const (
	StateWaitingForHandle State = "waiting_for_handle"
	StateSettling         State = "settling"
	StateMinimizing       State = "minimizing"
	StateWatching         State = "watching"
	StateTracking         State = "tracking"
	StateForcing          State = "forcing"
	StateDone             State = "done"
	StateAbandoned        State = "abandoned"
)

const (
	EventHandleFound      Event = "handle_found"
	EventHandleTimeout    Event = "handle_timeout"
	EventProcessExited    Event = "process_exited"
	EventSettled          Event = "settled"
	EventAttemptFailed    Event = "attempt_failed"
	EventAttemptsExceeded Event = "attempts_exceeded"
	EventMinimized        Event = "minimized"
	EventWindowLost       Event = "window_lost"
	EventCandidateFound   Event = "candidate_found"
	EventQuietElapsed     Event = "quiet_elapsed"
	EventRoundsExhausted  Event = "rounds_exhausted"
	EventCanceled         Event = "canceled"
)

// Terminal reports whether no further events are accepted.
func Terminal(state State) bool {
	return state == StateDone || state == StateAbandoned
}

// DirectTransition drives the minimizer for a process's own main window:
// WaitingForHandle -> Settling -> Minimizing(1..n) -> Done | Abandoned.
func DirectTransition(current State, event Event) (State, error) {
	if event == EventCanceled && !Terminal(current) {
		return StateAbandoned, nil
	}

	switch current {
	case StateWaitingForHandle:
		switch event {
		case EventHandleFound:
			return StateSettling, nil
		case EventHandleTimeout, EventProcessExited:
			return StateAbandoned, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateSettling:
		switch event {
		case EventSettled:
			return StateMinimizing, nil
		case EventProcessExited, EventWindowLost:
			return StateAbandoned, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateMinimizing:
		switch event {
		case EventAttemptFailed:
			return StateMinimizing, nil
		case EventMinimized:
			return StateDone, nil
		case EventAttemptsExceeded, EventProcessExited, EventWindowLost:
			return StateAbandoned, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateDone, StateAbandoned:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// MonitorTransition drives the global window watcher. A minimized or
// abandoned candidate returns the machine to Watching so a later window
// from the same launcher is handled too.
func MonitorTransition(current State, event Event) (State, error) {
	if event == EventCanceled && !Terminal(current) {
		return StateAbandoned, nil
	}

	switch current {
	case StateWatching:
		switch event {
		case EventCandidateFound:
			return StateTracking, nil
		case EventRoundsExhausted:
			return StateDone, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTracking:
		switch event {
		case EventCandidateFound:
			return StateTracking, nil
		case EventQuietElapsed:
			return StateForcing, nil
		case EventRoundsExhausted:
			return StateAbandoned, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateForcing:
		switch event {
		case EventMinimized, EventWindowLost, EventAttemptsExceeded:
			return StateWatching, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateDone, StateAbandoned:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
