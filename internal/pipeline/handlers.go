package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rbright/autostart/internal/action"
	"github.com/rbright/autostart/internal/audio"
	"github.com/rbright/autostart/internal/launch"
	"github.com/rbright/autostart/internal/power"
	"github.com/rbright/autostart/internal/window"
)

func (e *Executor) runLaunch(ctx context.Context, rc *runContext, index int, a *action.Launch) error {
	if e.deps.Launcher == nil {
		return fmt.Errorf("launcher: %w", ErrUnavailable)
	}
	path, err := launch.Target(a.FilePath, e.deps.LookPath)
	if err != nil {
		return err
	}

	dir := launch.WorkingDir(path, rc.lastDir)
	proc, err := e.deps.Launcher.Launch(ctx, launch.Request{
		Path:           path,
		Args:           a.Arguments,
		Dir:            dir,
		StartMinimized: a.Minimize != action.MinimizeNone,
	})
	if err != nil {
		return err
	}
	rc.lastDir = dir
	if proc == nil {
		return nil
	}

	if a.Minimize == action.MinimizeNone || e.deps.Windows == nil {
		if a.Minimize != action.MinimizeNone {
			e.logger.Warn("window minimizing unavailable", "index", index, "path", path)
		}
		return proc.Release()
	}

	logger := e.logger.With("index", index, "path", path)
	switch a.Minimize {
	case action.MinimizeDirect:
		direct := &window.Direct{
			Surface: e.deps.Windows,
			Timings: e.deps.DirectTimings,
			Clock:   e.deps.Clock,
			Logger:  logger,
		}
		rc.spawn(ctx, index, func(ctx context.Context) window.Result {
			defer proc.Release()
			return direct.Run(ctx, proc)
		})
	case action.MinimizeForce:
		monitor := &window.Monitor{
			Surface:       e.deps.Windows,
			Timings:       e.deps.MonitorTimings,
			SystemClasses: e.deps.SystemClasses,
			Clock:         e.deps.Clock,
			Logger:        logger,
		}
		baseline := monitor.Baseline(ctx)
		if err := proc.Release(); err != nil {
			logger.Debug("release process handle", "error", err.Error())
		}
		rc.spawn(ctx, index, func(ctx context.Context) window.Result {
			return monitor.Run(ctx, baseline)
		})
	}
	return nil
}

func (e *Executor) runDelay(ctx context.Context, a *action.Delay) error {
	d := a.Duration()
	if d == 0 {
		return nil
	}
	return e.deps.Clock.Sleep(ctx, d)
}

// resolve finds the endpoint for ref and back-fills ref with its identity.
func (e *Executor) resolve(ctx context.Context, rc *runContext, ref *action.DeviceRef) (audio.DeviceInfo, error) {
	if rc.resolver == nil {
		return audio.DeviceInfo{}, fmt.Errorf("audio: %w", ErrUnavailable)
	}
	device, ok := rc.resolver.Resolve(ctx, *ref)
	if !ok {
		return audio.DeviceInfo{}, fmt.Errorf("%w: id=%q instance=%q name=%q", ErrDeviceNotFound, ref.ID, ref.InstanceID, ref.Name)
	}
	audio.Backfill(ref, device)
	return device, nil
}

// runSetAudioDevice enables the endpoint first so a disabled device can
// become the default, then assigns it to every role.
func (e *Executor) runSetAudioDevice(ctx context.Context, rc *runContext, a *action.SetAudioDevice) error {
	device, err := e.resolve(ctx, rc, &a.Device)
	if err != nil {
		return err
	}
	ctrl, err := rc.policyController(ctx)
	if err != nil {
		return err
	}
	ctrl.SetVisibility(ctx, device.ID, true)
	if !ctrl.SetDefault(ctx, device.ID) {
		return fmt.Errorf("%w: set default %s", ErrPolicyRejected, device.FriendlyName)
	}
	return nil
}

func (e *Executor) runVisibility(ctx context.Context, rc *runContext, ref *action.DeviceRef, enabled bool) error {
	device, err := e.resolve(ctx, rc, ref)
	if err != nil {
		return err
	}
	ctrl, err := rc.policyController(ctx)
	if err != nil {
		return err
	}
	if !ctrl.SetVisibility(ctx, device.ID, enabled) {
		return fmt.Errorf("%w: visibility of %s", ErrPolicyRejected, device.FriendlyName)
	}
	return nil
}

// runSetAudioVolume applies per-direction volumes to the default endpoints.
// When neither direction is set, the legacy percent goes to the described
// device, or to the default playback endpoint when none resolves.
func (e *Executor) runSetAudioVolume(ctx context.Context, rc *runContext, a *action.SetAudioVolume) error {
	ctrl, err := rc.volumeController()
	if err != nil {
		return err
	}

	var failed []string
	apply := func(target audio.VolumeTarget, percent int, label string) {
		if !ctrl.SetVolume(ctx, target, percent) {
			failed = append(failed, label)
		}
	}

	switch {
	case a.Playback != nil || a.Recording != nil:
		if a.Playback != nil {
			apply(audio.VolumeTarget{Flow: audio.FlowPlayback}, *a.Playback, "playback")
		}
		if a.Recording != nil {
			apply(audio.VolumeTarget{Flow: audio.FlowRecording}, *a.Recording, "recording")
		}
	case a.Percent != nil:
		target := audio.VolumeTarget{Flow: audio.FlowPlayback}
		if !a.Device.Empty() {
			device, err := e.resolve(ctx, rc, &a.Device)
			if err != nil {
				e.logger.Warn("volume target not found; using default playback device", "error", err.Error())
			} else {
				target.DeviceID = device.ID
			}
		}
		apply(target, *a.Percent, "device")
	default:
		return errors.New("no volume level set")
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: volume %v", ErrPolicyRejected, failed)
	}
	return nil
}

func (e *Executor) runSetPowerPlan(ctx context.Context, a *action.SetPowerPlan) error {
	if e.deps.Power == nil {
		return fmt.Errorf("power: %w", ErrUnavailable)
	}

	id := a.PlanID
	if id == uuid.Nil {
		if a.PlanName == "" {
			return fmt.Errorf("%w: no plan id or name", power.ErrPlanNotFound)
		}
		plans, err := e.deps.Power.Plans(ctx)
		if err != nil {
			return err
		}
		plan, ok := power.Find(plans, uuid.Nil, a.PlanName)
		if !ok {
			return fmt.Errorf("%w: %s", power.ErrPlanNotFound, a.PlanName)
		}
		id = plan.ID
	}
	return e.deps.Power.Activate(ctx, id)
}
