// Package audio handles endpoint discovery, resolution, and policy changes.
package audio

import (
	"context"
	"errors"
	"fmt"
)

// Flow is the direction of an endpoint.
type Flow int

const (
	FlowPlayback Flow = iota
	FlowRecording
)

func (f Flow) String() string {
	switch f {
	case FlowPlayback:
		return "playback"
	case FlowRecording:
		return "recording"
	default:
		return fmt.Sprintf("flow(%d)", int(f))
	}
}

// State is the availability of an endpoint.
type State int

const (
	StateUnknown State = iota
	StateActive
	StateDisabled
	StateUnplugged
	StateNotPresent
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDisabled:
		return "disabled"
	case StateUnplugged:
		return "unplugged"
	case StateNotPresent:
		return "not-present"
	default:
		return "unknown"
	}
}

// preference ranks states for name-match tie breaking; higher wins.
func (s State) preference() int {
	switch s {
	case StateActive:
		return 4
	case StateDisabled:
		return 3
	case StateUnplugged:
		return 2
	case StateNotPresent:
		return 1
	default:
		return 0
	}
}

// Role is a default-device assignment target.
type Role int

const (
	RoleConsole Role = iota
	RoleMultimedia
	RoleCommunications
)

// Roles lists every role a default endpoint must be assigned to.
var Roles = []Role{RoleConsole, RoleMultimedia, RoleCommunications}

func (r Role) String() string {
	switch r {
	case RoleConsole:
		return "console"
	case RoleMultimedia:
		return "multimedia"
	case RoleCommunications:
		return "communications"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// DeviceInfo describes one endpoint in a snapshot.
type DeviceInfo struct {
	// ID is the OS endpoint id; it can change when drivers are reinstalled.
	ID string
	// InstanceID is the stable hardware identity.
	InstanceID   string
	FriendlyName string
	State        State
	Flow         Flow
}

// DisplayName is the friendly name with a state suffix for listings.
func (d DeviceInfo) DisplayName() string {
	name := d.FriendlyName
	if name == "" {
		name = "Unknown device"
	}
	switch d.State {
	case StateActive:
		return name
	case StateDisabled:
		return name + " (disabled)"
	case StateUnplugged:
		return name + " (unplugged)"
	case StateNotPresent:
		return name + " (not present)"
	default:
		return name + " (" + d.State.String() + ")"
	}
}

// ErrUnsupported is returned by backends for operations the OS cannot perform.
var ErrUnsupported = errors.New("operation not supported by audio backend")

// PolicyClient changes endpoint policy. One instance is reused for a whole run.
type PolicyClient interface {
	SetDefaultEndpoint(ctx context.Context, deviceID string, role Role) error
	SetEndpointVisibility(ctx context.Context, deviceID string, visible bool) error
	Close() error
}

// Backend is the OS audio surface consumed by the engine.
type Backend interface {
	// Devices lists endpoints of one flow in every state.
	Devices(ctx context.Context, flow Flow) ([]DeviceInfo, error)
	NewPolicyClient(ctx context.Context) (PolicyClient, error)
	// SetDeviceVolume applies a linear scalar in [0,1] to one endpoint.
	SetDeviceVolume(ctx context.Context, deviceID string, scalar float32) error
	// SetDefaultVolume applies a linear scalar to the default endpoint of flow.
	SetDefaultVolume(ctx context.Context, flow Flow, scalar float32) error
}

// ListDevices returns playback endpoints followed by recording endpoints.
func ListDevices(ctx context.Context, backend Backend) ([]DeviceInfo, error) {
	playback, err := backend.Devices(ctx, FlowPlayback)
	if err != nil {
		return nil, fmt.Errorf("list playback devices: %w", err)
	}
	recording, err := backend.Devices(ctx, FlowRecording)
	if err != nil {
		return nil, fmt.Errorf("list recording devices: %w", err)
	}
	return append(playback, recording...), nil
}
