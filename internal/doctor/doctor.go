// Package doctor runs readiness diagnostics for config and the OS backends.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rbright/autostart/internal/audio"
	"github.com/rbright/autostart/internal/config"
	"github.com/rbright/autostart/internal/platform"
	"github.com/rbright/autostart/internal/power"
	"github.com/rbright/autostart/internal/window"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run checks the loaded config and probes each selected backend once.
func Run(ctx context.Context, cfg config.Loaded, backends platform.Backends) Report {
	checks := []Check{checkConfig(cfg)}

	if backends.WindowName == config.BackendHypr {
		checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))
		checks = append(checks, checkBinary("hyprctl", "window backend"))
	}
	if backends.PowerName == config.BackendPowerProfiles {
		checks = append(checks, checkBinary(cfg.Config.Power.Command, "power backend"))
	}

	checks = append(checks,
		checkAudio(ctx, backends.AudioName, backends.Audio, backends.AudioErr),
		checkWindows(ctx, backends.WindowName, backends.Windows, backends.WindowErr),
		checkPower(ctx, backends.PowerName, backends.Power, backends.PowerErr),
	)

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", cfg.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// unavailable covers a backend that is disabled by config or failed to build.
func unavailable(name string, backend string, err error) (Check, bool) {
	if backend == config.BackendNone {
		return Check{Name: name, Pass: true, Message: "disabled by config"}, true
	}
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s: %v", backend, err)}, true
	}
	return Check{}, false
}

// checkAudio enumerates endpoints the same way a run snapshot does.
func checkAudio(ctx context.Context, name string, backend audio.Backend, buildErr error) Check {
	if check, done := unavailable("audio", name, buildErr); done {
		return check
	}
	devices, err := audio.ListDevices(ctx, backend)
	if err != nil {
		return Check{Name: "audio", Pass: false, Message: fmt.Sprintf("%s: %v", name, err)}
	}
	var playback, recording int
	for _, d := range devices {
		if d.Flow == audio.FlowPlayback {
			playback++
		} else {
			recording++
		}
	}
	return Check{Name: "audio", Pass: true, Message: fmt.Sprintf("%s: %d playback, %d recording endpoints", name, playback, recording)}
}

func checkWindows(ctx context.Context, name string, surface window.Surface, buildErr error) Check {
	if check, done := unavailable("window", name, buildErr); done {
		return check
	}
	handles, err := surface.VisibleWindows(ctx)
	if err != nil {
		return Check{Name: "window", Pass: false, Message: fmt.Sprintf("%s: %v", name, err)}
	}
	return Check{Name: "window", Pass: true, Message: fmt.Sprintf("%s: %d visible windows", name, len(handles))}
}

func checkPower(ctx context.Context, name string, switcher power.Switcher, buildErr error) Check {
	if check, done := unavailable("power", name, buildErr); done {
		return check
	}
	plans, err := switcher.Plans(ctx)
	if err != nil {
		return Check{Name: "power", Pass: false, Message: fmt.Sprintf("%s: %v", name, err)}
	}
	active := "none active"
	for _, plan := range plans {
		if plan.Active {
			active = "active " + plan.Name
			break
		}
	}
	return Check{Name: "power", Pass: true, Message: fmt.Sprintf("%s: %d plans, %s", name, len(plans), active)}
}
