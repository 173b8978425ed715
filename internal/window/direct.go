package window

import (
	"context"
	"log/slog"
	"time"

	"github.com/rbright/autostart/internal/clock"
	"github.com/rbright/autostart/internal/fsm"
)

// DirectTimings bounds the direct minimizer.
type DirectTimings struct {
	HandleWait time.Duration
	HandlePoll time.Duration
	Settle     time.Duration
	Attempts   int
	// Backoff is the first inter-attempt delay; it doubles per attempt.
	Backoff time.Duration
}

// DefaultDirectTimings are tuned for applications that honor the
// start-minimized hint but sometimes restore themselves while initializing.
var DefaultDirectTimings = DirectTimings{
	HandleWait: 5 * time.Second,
	HandlePoll: 100 * time.Millisecond,
	Settle:     300 * time.Millisecond,
	Attempts:   3,
	Backoff:    150 * time.Millisecond,
}

// Direct minimizes a just-spawned process's own main window.
type Direct struct {
	Surface Surface
	Timings DirectTimings
	Clock   clock.Clock
	Logger  *slog.Logger
}

// NewDirect builds a direct minimizer with default timings and the wall clock.
func NewDirect(surface Surface, logger *slog.Logger) *Direct {
	return &Direct{Surface: surface, Timings: DefaultDirectTimings, Clock: clock.Real{}, Logger: logger}
}

type directRun struct {
	d      *Direct
	logger *slog.Logger
	proc   Process
	state  fsm.State
	result Result
}

func (r *directRun) fire(event fsm.Event) {
	next, err := fsm.DirectTransition(r.state, event)
	if err != nil {
		r.logger.Debug("direct minimizer transition rejected", "state", string(r.state), "event", string(event), "error", err.Error())
		return
	}
	r.state = next
}

// Run drives the machine to Done or Abandoned. It never returns an error:
// process exit and vanished windows end the run silently.
func (d *Direct) Run(ctx context.Context, proc Process) Result {
	r := &directRun{
		d:      d,
		logger: orDiscard(d.Logger).With("minimizer", "direct", "pid", proc.PID()),
		proc:   proc,
		state:  fsm.StateWaitingForHandle,
	}
	r.waitForHandle(ctx)
	if r.state == fsm.StateSettling {
		r.settle(ctx)
	}
	if r.state == fsm.StateMinimizing {
		r.minimize(ctx)
	}
	r.result.State = r.state
	r.logger.Debug("direct minimizer finished", "state", string(r.state), "attempts", r.result.Attempts)
	return r.result
}

func (r *directRun) waitForHandle(ctx context.Context) {
	surface, clk := r.d.Surface, r.d.Clock
	deadline := clk.Now().Add(r.d.Timings.HandleWait)
	for {
		if r.proc.Exited() {
			r.fire(fsm.EventProcessExited)
			return
		}
		h, err := surface.MainWindow(ctx, r.proc.PID())
		if err != nil {
			r.logger.Debug("main window lookup failed", "error", err.Error())
		}
		if h != 0 {
			r.result.Window = h
			r.fire(fsm.EventHandleFound)
			return
		}
		if !clk.Now().Before(deadline) {
			r.fire(fsm.EventHandleTimeout)
			return
		}
		if err := clk.Sleep(ctx, r.d.Timings.HandlePoll); err != nil {
			r.fire(fsm.EventCanceled)
			return
		}
	}
}

func (r *directRun) settle(ctx context.Context) {
	if err := r.d.Clock.Sleep(ctx, r.d.Timings.Settle); err != nil {
		r.fire(fsm.EventCanceled)
		return
	}
	switch {
	case r.proc.Exited():
		r.fire(fsm.EventProcessExited)
	case !r.d.Surface.Exists(ctx, r.result.Window):
		r.fire(fsm.EventWindowLost)
	default:
		r.fire(fsm.EventSettled)
	}
}

func (r *directRun) minimize(ctx context.Context) {
	surface := r.d.Surface
	attempts := max(r.d.Timings.Attempts, 1)
	backoff := r.d.Timings.Backoff

	for attempt := 0; attempt < attempts; attempt++ {
		if r.proc.Exited() {
			r.fire(fsm.EventProcessExited)
			return
		}
		// The main window can change while the app initializes.
		if h, err := surface.MainWindow(ctx, r.proc.PID()); err == nil && h != 0 {
			r.result.Window = h
		}
		h := r.result.Window
		if !surface.Exists(ctx, h) {
			r.fire(fsm.EventWindowLost)
			return
		}

		already, err := MinimizeOnce(ctx, surface, h)
		if already {
			r.result.Minimized = 1
			r.fire(fsm.EventMinimized)
			return
		}
		r.result.Attempts++
		if err != nil {
			r.logger.Debug("minimize call failed", "window", uint64(h), "attempt", attempt+1, "error", err.Error())
		}

		if attempt < attempts-1 {
			if err := r.d.Clock.Sleep(ctx, backoff); err != nil {
				r.fire(fsm.EventCanceled)
				return
			}
			backoff *= 2
			r.fire(fsm.EventAttemptFailed)
		}
	}

	if surface.Iconic(ctx, r.result.Window) {
		r.result.Minimized = 1
		r.fire(fsm.EventMinimized)
		return
	}
	r.fire(fsm.EventAttemptsExceeded)
}
