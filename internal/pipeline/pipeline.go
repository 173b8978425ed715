// Package pipeline executes profile actions in order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/rbright/autostart/internal/action"
	"github.com/rbright/autostart/internal/audio"
	"github.com/rbright/autostart/internal/clock"
	"github.com/rbright/autostart/internal/launch"
	"github.com/rbright/autostart/internal/power"
	"github.com/rbright/autostart/internal/window"
)

var (
	// ErrTargetNotFound is returned when a launch path does not exist.
	ErrTargetNotFound = launch.ErrNotFound
	// ErrDeviceNotFound is returned when no endpoint matches a descriptor.
	ErrDeviceNotFound = errors.New("audio device not found")
	// ErrPolicyRejected is returned when the OS refused an endpoint change.
	ErrPolicyRejected = errors.New("audio policy change rejected")
	// ErrUnavailable is returned when the platform lacks a needed backend.
	ErrUnavailable = errors.New("backend unavailable on this platform")
)

// Dependencies are the OS surfaces an Executor drives. Nil Audio, Power, or
// Windows make the corresponding actions fail (or skip minimizing) without
// affecting other actions.
type Dependencies struct {
	Audio    audio.Backend
	Power    power.Switcher
	Launcher launch.Launcher
	Windows  window.Surface

	DirectTimings  window.DirectTimings
	MonitorTimings window.MonitorTimings
	SystemClasses  []string

	Clock    clock.Clock
	Logger   *slog.Logger
	LookPath func(string) (string, error)
}

// Outcome records what happened to one action.
type Outcome struct {
	Index       int
	Kind        action.Kind
	Description string
	Err         error
	Elapsed     time.Duration
}

// Report summarizes a run. Minimizers is filled after the final join.
type Report struct {
	Outcomes   []Outcome
	Minimizers []window.Result
	// Canceled is set when the run stopped before dispatching every action.
	Canceled bool
}

// Failed counts actions that returned an error.
func (r Report) Failed() int {
	n := 0
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			n++
		}
	}
	return n
}

// Executor runs action lists. Each Run gets its own run context, so an
// Executor may be reused but not shared by concurrent runs.
type Executor struct {
	deps   Dependencies
	logger *slog.Logger
}

// New fills unset dependencies with defaults.
func New(deps Dependencies) *Executor {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.LookPath == nil {
		deps.LookPath = exec.LookPath
	}
	if deps.DirectTimings == (window.DirectTimings{}) {
		deps.DirectTimings = window.DefaultDirectTimings
	}
	if deps.MonitorTimings == (window.MonitorTimings{}) {
		deps.MonitorTimings = window.DefaultMonitorTimings
	}
	if deps.SystemClasses == nil {
		deps.SystemClasses = window.DefaultSystemClasses
	}
	return &Executor{deps: deps, logger: deps.Logger}
}

// Run dispatches actions strictly in order. Failures are logged and the run
// moves on. Minimizers spawned by launch actions run in the background and
// are all joined before Run returns.
func (e *Executor) Run(ctx context.Context, actions []action.Action) Report {
	rc := newRunContext(e)
	defer rc.close()

	report := Report{Outcomes: make([]Outcome, 0, len(actions))}
	started := e.deps.Clock.Now()
	e.logger.Info("run started", "actions", len(actions))

	for i, act := range actions {
		if act == nil {
			continue
		}
		if ctx.Err() != nil {
			report.Canceled = true
			e.logger.Warn("run canceled", "remaining", len(actions)-i)
			break
		}

		begin := e.deps.Clock.Now()
		err := e.dispatch(ctx, rc, i, act)
		outcome := Outcome{
			Index:       i,
			Kind:        act.Kind(),
			Description: act.Describe(),
			Err:         err,
			Elapsed:     e.deps.Clock.Now().Sub(begin),
		}
		report.Outcomes = append(report.Outcomes, outcome)

		if err != nil {
			e.logger.Warn("action failed",
				"index", i,
				"kind", string(outcome.Kind),
				"action", outcome.Description,
				"error", err.Error(),
			)
			continue
		}
		e.logger.Info("action completed",
			"index", i,
			"kind", string(outcome.Kind),
			"action", outcome.Description,
			"elapsed_ms", outcome.Elapsed.Milliseconds(),
		)
	}

	report.Minimizers = rc.join()
	e.logger.Info("run finished",
		"actions", len(report.Outcomes),
		"failed", report.Failed(),
		"minimizers", len(report.Minimizers),
		"elapsed_ms", e.deps.Clock.Now().Sub(started).Milliseconds(),
	)
	return report
}

// dispatch is the exhaustive kind switch. A panicking handler is reported as
// that action's failure.
func (e *Executor) dispatch(ctx context.Context, rc *runContext, index int, act action.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	switch a := act.(type) {
	case *action.Launch:
		return e.runLaunch(ctx, rc, index, a)
	case *action.Delay:
		return e.runDelay(ctx, a)
	case *action.SetAudioDevice:
		return e.runSetAudioDevice(ctx, rc, a)
	case *action.EnableAudioDevice:
		return e.runVisibility(ctx, rc, &a.Device, true)
	case *action.DisableAudioDevice:
		return e.runVisibility(ctx, rc, &a.Device, false)
	case *action.SetAudioVolume:
		return e.runSetAudioVolume(ctx, rc, a)
	case *action.SetPowerPlan:
		return e.runSetPowerPlan(ctx, a)
	default:
		return fmt.Errorf("unsupported action %T", act)
	}
}
