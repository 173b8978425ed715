// Package action defines the automation steps a profile is made of.
package action

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the action variants.
type Kind string

const (
	KindLaunch             Kind = "LaunchApplication"
	KindDelay              Kind = "Delay"
	KindSetAudioDevice     Kind = "SetAudioDevice"
	KindEnableAudioDevice  Kind = "EnableAudioDevice"
	KindDisableAudioDevice Kind = "DisableAudioDevice"
	KindSetAudioVolume     Kind = "SetAudioVolume"
	KindSetPowerPlan       Kind = "SetPowerPlan"
)

// Kinds lists every known kind in a stable order.
var Kinds = []Kind{
	KindLaunch,
	KindDelay,
	KindSetAudioDevice,
	KindEnableAudioDevice,
	KindDisableAudioDevice,
	KindSetAudioVolume,
	KindSetPowerPlan,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Action is one profile step. Concrete types are the pointer forms of the
// structs in this package so the engine can back-fill resolved fields.
type Action interface {
	Kind() Kind
	Describe() string
}

// DeviceRef is a loose audio device descriptor; any subset may be set.
type DeviceRef struct {
	ID         string
	InstanceID string
	Name       string
}

// Empty reports whether no identifying field is present.
func (r DeviceRef) Empty() bool {
	return strings.TrimSpace(r.ID) == "" &&
		strings.TrimSpace(r.InstanceID) == "" &&
		strings.TrimSpace(r.Name) == ""
}

func (r DeviceRef) label() string {
	if r.Name != "" {
		return r.Name
	}
	return "N/A"
}

// DeviceOf returns the device descriptor carried by a, or nil for kinds
// without one. The pointer aliases a so resolved ids can be written back.
func DeviceOf(a Action) *DeviceRef {
	switch v := a.(type) {
	case *SetAudioDevice:
		return &v.Device
	case *EnableAudioDevice:
		return &v.Device
	case *DisableAudioDevice:
		return &v.Device
	case *SetAudioVolume:
		return &v.Device
	default:
		return nil
	}
}

// MinimizeMode selects how a launched window is forced into the minimized state.
type MinimizeMode int

const (
	MinimizeNone MinimizeMode = iota
	// MinimizeDirect waits for the launched process's own window.
	MinimizeDirect
	// MinimizeForce watches the global window set for a new top-level window.
	MinimizeForce
)

// Launch starts an application.
type Launch struct {
	FilePath  string
	Arguments string
	Minimize  MinimizeMode
}

func (*Launch) Kind() Kind { return KindLaunch }

func (l *Launch) Describe() string {
	if l.FilePath == "" {
		return "N/A"
	}
	return filepath.Base(l.FilePath)
}

// MinimizeWindow reports whether the direct minimizer is requested.
func (l *Launch) MinimizeWindow() bool { return l.Minimize == MinimizeDirect }

// ForceMinimizeWindow reports whether the monitoring minimizer is requested.
func (l *Launch) ForceMinimizeWindow() bool { return l.Minimize == MinimizeForce }

// SetMinimizeWindow toggles direct minimization; enabling it clears force minimization.
func (l *Launch) SetMinimizeWindow(on bool) {
	switch {
	case on:
		l.Minimize = MinimizeDirect
	case l.Minimize == MinimizeDirect:
		l.Minimize = MinimizeNone
	}
}

// SetForceMinimizeWindow toggles force minimization; enabling it clears direct minimization.
func (l *Launch) SetForceMinimizeWindow(on bool) {
	switch {
	case on:
		l.Minimize = MinimizeForce
	case l.Minimize == MinimizeForce:
		l.Minimize = MinimizeNone
	}
}

// Delay pauses the pipeline.
type Delay struct {
	Seconds int
}

func (*Delay) Kind() Kind { return KindDelay }

func (d *Delay) Describe() string { return fmt.Sprintf("wait %ds", d.Seconds) }

// maxDelaySeconds is the largest delay a time.Duration can hold.
const maxDelaySeconds = math.MaxInt64 / int64(time.Second)

// Duration converts Seconds; non-positive values yield zero and huge values
// saturate instead of wrapping negative.
func (d *Delay) Duration() time.Duration {
	if d.Seconds <= 0 {
		return 0
	}
	if int64(d.Seconds) > maxDelaySeconds {
		return time.Duration(maxDelaySeconds) * time.Second
	}
	return time.Duration(d.Seconds) * time.Second
}

// SetAudioDevice enables an endpoint and makes it the default for every role.
type SetAudioDevice struct {
	Device DeviceRef
}

func (*SetAudioDevice) Kind() Kind { return KindSetAudioDevice }

func (a *SetAudioDevice) Describe() string { return a.Device.label() }

// EnableAudioDevice exposes an endpoint to the OS audio stack.
type EnableAudioDevice struct {
	Device DeviceRef
}

func (*EnableAudioDevice) Kind() Kind { return KindEnableAudioDevice }

func (a *EnableAudioDevice) Describe() string { return a.Device.label() }

// DisableAudioDevice hides an endpoint from the OS audio stack.
type DisableAudioDevice struct {
	Device DeviceRef
}

func (*DisableAudioDevice) Kind() Kind { return KindDisableAudioDevice }

func (a *DisableAudioDevice) Describe() string { return a.Device.label() }

// SetAudioVolume adjusts endpoint volume.
//
// Playback and Recording target the default endpoint of that flow. Percent is
// the older single-value form: it applies to Device when that resolves, and to
// the default playback endpoint otherwise. Percent is only consulted when
// neither flow-specific value is set.
type SetAudioVolume struct {
	Device    DeviceRef
	Percent   *int
	Playback  *int
	Recording *int
}

func (*SetAudioVolume) Kind() Kind { return KindSetAudioVolume }

func (a *SetAudioVolume) Describe() string {
	parts := make([]string, 0, 2)
	if a.Playback != nil {
		parts = append(parts, fmt.Sprintf("playback %d%%", *a.Playback))
	}
	if a.Recording != nil {
		parts = append(parts, fmt.Sprintf("recording %d%%", *a.Recording))
	}
	if len(parts) > 0 {
		return strings.Join(parts, " / ")
	}
	if a.Percent != nil {
		return fmt.Sprintf("volume %d%%", *a.Percent)
	}
	if a.Device.Name != "" {
		return a.Device.Name
	}
	return "volume"
}

// SetPowerPlan activates a power scheme.
type SetPowerPlan struct {
	PlanID   uuid.UUID
	PlanName string
}

func (*SetPowerPlan) Kind() Kind { return KindSetPowerPlan }

func (a *SetPowerPlan) Describe() string {
	if a.PlanName != "" {
		return a.PlanName
	}
	if a.PlanID != uuid.Nil {
		return a.PlanID.String()
	}
	return "N/A"
}

// ClampPercent limits a volume percentage to [0,100].
func ClampPercent(percent int) int {
	return min(max(percent, 0), 100)
}

// Percent returns a pointer to the clamped value.
func Percent(v int) *int {
	clamped := ClampPercent(v)
	return &clamped
}
