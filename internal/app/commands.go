package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rbright/autostart/internal/action"
	"github.com/rbright/autostart/internal/audio"
	"github.com/rbright/autostart/internal/config"
	"github.com/rbright/autostart/internal/pipeline"
	"github.com/rbright/autostart/internal/platform"
	"github.com/rbright/autostart/internal/profile"
)

// exitCanceled is returned when a run is interrupted by a signal.
const exitCanceled = 130

func (r Runner) loadProfile(path string, logger *slog.Logger) (profile.Document, bool) {
	doc, err := profile.DefaultCodec().Load(path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load profile failed", "path", path, "error", err.Error())
		return profile.Document{}, false
	}
	for _, issue := range doc.Issues {
		fmt.Fprintf(r.Stderr, "warning: %v\n", issue)
		logger.Warn("profile record skipped", "path", path, "index", issue.Index, "error", issue.Err.Error())
	}
	return doc, true
}

// commandRun attempts every action and exits 0 regardless of per-action
// failures; only an unreadable profile or an interrupt is an error.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, backends platform.Backends, path string, logger *slog.Logger) int {
	doc, ok := r.loadProfile(path, logger)
	if !ok {
		return 1
	}

	exe := pipeline.New(pipeline.Dependencies{
		Audio:          backends.Audio,
		Power:          backends.Power,
		Launcher:       backends.Launcher,
		Windows:        backends.Windows,
		DirectTimings:  cfg.Minimize,
		MonitorTimings: cfg.ForceMinimize,
		SystemClasses:  cfg.Window.SystemClasses,
		Clock:          r.Clock,
		Logger:         logger.With("profile", path),
	})
	report := exe.Run(ctx, doc.Actions)

	for _, outcome := range report.Outcomes {
		if outcome.Err != nil {
			fmt.Fprintf(r.Stderr, "warning: action %d (%s %s): %v\n", outcome.Index, outcome.Kind, outcome.Description, outcome.Err)
		}
	}
	fmt.Fprintf(r.Stdout, "%d actions, %d failed\n", len(report.Outcomes), report.Failed())

	if report.Canceled {
		return exitCanceled
	}
	return 0
}

// commandResolve back-fills device ids in place so later runs match by id.
func (r Runner) commandResolve(ctx context.Context, backends platform.Backends, path string, logger *slog.Logger) int {
	if backends.Audio == nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", audioUnavailable(backends))
		return 1
	}
	doc, ok := r.loadProfile(path, logger)
	if !ok {
		return 1
	}
	if len(doc.Issues) > 0 {
		fmt.Fprintf(r.Stderr, "error: profile has %d unreadable records; not rewriting it\n", len(doc.Issues))
		return 1
	}

	resolver := audio.NewResolver(func(ctx context.Context) ([]audio.DeviceInfo, error) {
		return audio.ListDevices(ctx, backends.Audio)
	}, logger)

	resolved := 0
	for i, act := range doc.Actions {
		ref := action.DeviceOf(act)
		if ref == nil || ref.Empty() {
			continue
		}
		device, found := resolver.Resolve(ctx, *ref)
		if !found {
			fmt.Fprintf(r.Stdout, "not found: action %d (%s) name=%q\n", i, act.Kind(), ref.Name)
			continue
		}
		audio.Backfill(ref, device)
		resolved++
		fmt.Fprintf(r.Stdout, "resolved: action %d (%s) %s -> %s\n", i, act.Kind(), device.FriendlyName, device.ID)
	}

	if err := profile.DefaultCodec().Save(path, doc.Actions); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	logger.Info("profile resolved", "path", path, "resolved", resolved)
	return 0
}

type deviceJSON struct {
	ID          string `json:"id"`
	InstanceID  string `json:"instance_id,omitempty"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	State       string `json:"state"`
	Flow        string `json:"flow"`
}

func (r Runner) commandDevices(ctx context.Context, backends platform.Backends, asJSON bool) int {
	if backends.Audio == nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", audioUnavailable(backends))
		return 1
	}
	devices, err := audio.ListDevices(ctx, backends.Audio)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if asJSON {
		out := make([]deviceJSON, 0, len(devices))
		for _, d := range devices {
			out = append(out, deviceJSON{
				ID:          d.ID,
				InstanceID:  d.InstanceID,
				Name:        d.FriendlyName,
				DisplayName: d.DisplayName(),
				State:       d.State.String(),
				Flow:        d.Flow.String(),
			})
		}
		return r.writeJSON(out)
	}

	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}
	for _, d := range devices {
		fmt.Fprintf(
			r.Stdout,
			"%s | id=%s | instance=%s | name=%q | state=%s\n",
			d.Flow,
			d.ID,
			d.InstanceID,
			d.DisplayName(),
			d.State,
		)
	}
	return 0
}

type planJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func (r Runner) commandPlans(ctx context.Context, backends platform.Backends, asJSON bool) int {
	if backends.Power == nil {
		err := backends.PowerErr
		if err == nil {
			err = fmt.Errorf("power backend %q is disabled", backends.PowerName)
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	plans, err := backends.Power.Plans(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if asJSON {
		out := make([]planJSON, 0, len(plans))
		for _, p := range plans {
			out = append(out, planJSON{ID: p.ID.String(), Name: p.Name, Active: p.Active})
		}
		return r.writeJSON(out)
	}

	for _, p := range plans {
		fmt.Fprintf(r.Stdout, "id=%s | name=%q\n", p.ID, p.Label())
	}
	return 0
}

func (r Runner) writeJSON(v any) int {
	encoder := json.NewEncoder(r.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func audioUnavailable(backends platform.Backends) error {
	if backends.AudioErr != nil {
		return backends.AudioErr
	}
	return fmt.Errorf("audio backend %q is disabled", backends.AudioName)
}
