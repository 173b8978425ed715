// Package window minimizes windows of launched applications.
package window

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/rbright/autostart/internal/fsm"
)

// Handle is an opaque top-level window identifier.
type Handle uintptr

// Info is what candidate classification needs about one window.
type Info struct {
	Class       string
	Visible     bool
	MinimizeBox bool
	Owner       Handle
}

// Surface is the window-manager API consumed by the minimizers.
type Surface interface {
	// VisibleWindows enumerates visible top-level windows.
	VisibleWindows(ctx context.Context) ([]Handle, error)
	// MainWindow returns the primary window of pid, or 0 if it has none yet.
	MainWindow(ctx context.Context, pid int) (Handle, error)
	Inspect(ctx context.Context, h Handle) (Info, error)
	Exists(ctx context.Context, h Handle) bool
	Iconic(ctx context.Context, h Handle) bool
	// Minimize is the direct minimize call.
	Minimize(ctx context.Context, h Handle) error
	// PostMinimize asks the window to minimize itself via its message queue.
	PostMinimize(ctx context.Context, h Handle) error
	// Responsive reports whether h services a probe within timeout.
	Responsive(ctx context.Context, h Handle, timeout time.Duration) bool
}

// Process is a launched process as seen by the direct minimizer.
type Process interface {
	PID() int
	Exited() bool
}

// DefaultSystemClasses are shell and control classes never treated as
// application windows.
var DefaultSystemClasses = []string{"Shell_TrayWnd", "Button", "Static", "Edit", "ComboBox", "ListBox"}

// IsSystem reports whether a window is shell/control chrome, hidden, or owned
// by another window.
func IsSystem(info Info, systemClasses []string) bool {
	if slices.Contains(systemClasses, info.Class) {
		return true
	}
	if !info.Visible {
		return true
	}
	return info.Owner != 0
}

// IsCandidate reports whether a newly seen window should be force-minimized.
func IsCandidate(info Info, systemClasses []string) bool {
	return info.Visible && info.MinimizeBox && !IsSystem(info, systemClasses)
}

// Result is the terminal outcome of a minimizer run.
type Result struct {
	State fsm.State
	// Window is the last window acted on.
	Window Handle
	// Minimized counts windows that reached iconic state (or vanished while
	// being forced).
	Minimized int
	Attempts  int
}

// MinimizeOnce minimizes h unless it is already iconic. It reports whether h
// was already iconic, in which case no OS call is made.
func MinimizeOnce(ctx context.Context, surface Surface, h Handle) (bool, error) {
	if surface.Iconic(ctx, h) {
		return true, nil
	}
	return false, surface.Minimize(ctx, h)
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
