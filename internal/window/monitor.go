package window

import (
	"context"
	"log/slog"
	"time"

	"github.com/rbright/autostart/internal/clock"
	"github.com/rbright/autostart/internal/fsm"
)

// MonitorTimings bounds the process-monitoring minimizer.
type MonitorTimings struct {
	Rounds        int
	RoundInterval time.Duration
	// QuietPeriod must pass with no new candidate before forcing.
	QuietPeriod   time.Duration
	PreForceDelay time.Duration

	ForceAttempts     int
	ResponsiveTimeout time.Duration
	ProbeTimeout      time.Duration
	ProbeInterval     time.Duration
	PollRounds        int
	PollInterval      time.Duration
	AttemptGap        time.Duration
}

// DefaultMonitorTimings give launchers about twenty seconds to open their
// real window.
var DefaultMonitorTimings = MonitorTimings{
	Rounds:        20,
	RoundInterval: time.Second,
	QuietPeriod:   2 * time.Second,
	PreForceDelay: time.Second,

	ForceAttempts:     5,
	ResponsiveTimeout: 20 * time.Second,
	ProbeTimeout:      500 * time.Millisecond,
	ProbeInterval:     100 * time.Millisecond,
	PollRounds:        6,
	PollInterval:      500 * time.Millisecond,
	AttemptGap:        time.Second,
}

// Monitor watches for brand-new top-level windows and force-minimizes them.
// It is used for launchers whose real window belongs to another process.
type Monitor struct {
	Surface       Surface
	Timings       MonitorTimings
	SystemClasses []string
	Clock         clock.Clock
	Logger        *slog.Logger
}

// NewMonitor builds a monitor with default timings and the wall clock.
func NewMonitor(surface Surface, logger *slog.Logger) *Monitor {
	return &Monitor{
		Surface:       surface,
		Timings:       DefaultMonitorTimings,
		SystemClasses: DefaultSystemClasses,
		Clock:         clock.Real{},
		Logger:        logger,
	}
}

// Baseline captures the currently visible windows. Call it right after
// launching so pre-existing windows are never candidates.
func (m *Monitor) Baseline(ctx context.Context) []Handle {
	handles, err := m.Surface.VisibleWindows(ctx)
	if err != nil {
		orDiscard(m.Logger).Debug("baseline window enumeration failed", "error", err.Error())
		return nil
	}
	return handles
}

type monitorRun struct {
	m      *Monitor
	logger *slog.Logger
	state  fsm.State
	result Result
}

func (r *monitorRun) fire(event fsm.Event) {
	next, err := fsm.MonitorTransition(r.state, event)
	if err != nil {
		r.logger.Debug("monitor transition rejected", "state", string(r.state), "event", string(event), "error", err.Error())
		return
	}
	r.state = next
}

// Run polls for new windows diffed against baseline. After a successful
// force it keeps watching for further windows until the rounds run out.
func (m *Monitor) Run(ctx context.Context, baseline []Handle) Result {
	r := &monitorRun{
		m:      m,
		logger: orDiscard(m.Logger).With("minimizer", "monitor"),
		state:  fsm.StateWatching,
	}

	known := make(map[Handle]struct{}, len(baseline))
	for _, h := range baseline {
		known[h] = struct{}{}
	}

	var (
		target    Handle
		lastFound time.Time
	)

	for round := 0; round < m.Timings.Rounds; round++ {
		if err := m.Clock.Sleep(ctx, m.Timings.RoundInterval); err != nil {
			r.fire(fsm.EventCanceled)
			return r.finish()
		}

		current, err := m.Surface.VisibleWindows(ctx)
		if err != nil {
			r.logger.Debug("window enumeration failed", "round", round+1, "error", err.Error())
			continue
		}

		for _, h := range current {
			if _, seen := known[h]; seen {
				continue
			}
			info, err := m.Surface.Inspect(ctx, h)
			if err != nil || !m.Surface.Exists(ctx, h) || !IsCandidate(info, m.SystemClasses) {
				continue
			}
			known[h] = struct{}{}
			target = h
			lastFound = m.Clock.Now()
			r.logger.Debug("candidate window found", "window", uint64(h), "class", info.Class)
			r.fire(fsm.EventCandidateFound)
		}

		if r.state != fsm.StateTracking || m.Clock.Now().Sub(lastFound) < m.Timings.QuietPeriod {
			continue
		}

		r.fire(fsm.EventQuietElapsed)
		if err := m.Clock.Sleep(ctx, m.Timings.PreForceDelay); err != nil {
			r.fire(fsm.EventCanceled)
			return r.finish()
		}

		r.result.Window = target
		outcome := m.force(ctx, r, target)
		if outcome == fsm.EventCanceled {
			r.fire(outcome)
			return r.finish()
		}
		if outcome == fsm.EventMinimized {
			r.result.Minimized++
		} else {
			r.logger.Debug("candidate window left unminimized", "window", uint64(target), "outcome", string(outcome))
		}
		r.fire(outcome)
		target = 0
	}

	r.fire(fsm.EventRoundsExhausted)
	return r.finish()
}

func (r *monitorRun) finish() Result {
	r.result.State = r.state
	r.logger.Debug("monitor finished", "state", string(r.state), "minimized", r.result.Minimized)
	return r.result
}

// force runs the bounded responsiveness+command+poll cycle. A window that
// disappears while being polled counts as minimized.
func (m *Monitor) force(ctx context.Context, r *monitorRun, h Handle) fsm.Event {
	t := m.Timings
	attempts := max(t.ForceAttempts, 1)

	for attempt := 1; attempt <= attempts; attempt++ {
		if !m.Surface.Exists(ctx, h) {
			return fsm.EventWindowLost
		}
		if m.Surface.Iconic(ctx, h) {
			return fsm.EventMinimized
		}
		if err := m.waitResponsive(ctx, h); err != nil {
			return fsm.EventCanceled
		}

		r.result.Attempts++
		if err := m.Surface.PostMinimize(ctx, h); err != nil {
			r.logger.Debug("post minimize failed", "window", uint64(h), "attempt", attempt, "error", err.Error())
		}
		if err := m.Surface.Minimize(ctx, h); err != nil {
			r.logger.Debug("direct minimize failed", "window", uint64(h), "attempt", attempt, "error", err.Error())
		}

		for poll := 0; poll < t.PollRounds; poll++ {
			if err := m.Clock.Sleep(ctx, t.PollInterval); err != nil {
				return fsm.EventCanceled
			}
			if !m.Surface.Exists(ctx, h) || m.Surface.Iconic(ctx, h) {
				return fsm.EventMinimized
			}
		}

		if attempt < attempts {
			if err := m.Clock.Sleep(ctx, t.AttemptGap); err != nil {
				return fsm.EventCanceled
			}
		}
	}
	return fsm.EventAttemptsExceeded
}

// waitResponsive probes until the window services a message or the budget
// runs out. A hung window is not an error; the caller proceeds regardless.
func (m *Monitor) waitResponsive(ctx context.Context, h Handle) error {
	deadline := m.Clock.Now().Add(m.Timings.ResponsiveTimeout)
	for m.Clock.Now().Before(deadline) {
		if !m.Surface.Exists(ctx, h) {
			return nil
		}
		if m.Surface.Responsive(ctx, h, m.Timings.ProbeTimeout) {
			return nil
		}
		if err := m.Clock.Sleep(ctx, m.Timings.ProbeInterval); err != nil {
			return err
		}
	}
	return nil
}
