package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	// volumeNorm is PA_VOLUME_NORM (100%).
	volumeNorm = 0x10000
	// undefinedIndex is PA_INVALID_INDEX; requests address devices by name.
	undefinedIndex = 0xffffffff

	pulseStateSuspended = 2
	pulsePortNo         = 1

	monitorSuffix = ".monitor"
)

// PulseBackend drives PulseAudio/PipeWire sinks (playback) and sources
// (recording). Endpoint ids are sink/source names.
type PulseBackend struct {
	AppName string
}

// NewPulseBackend returns a backend that identifies itself as appName.
func NewPulseBackend(appName string) *PulseBackend {
	return &PulseBackend{AppName: appName}
}

func (b *PulseBackend) connect() (*pulse.Client, error) {
	name := b.AppName
	if name == "" {
		name = "autostart"
	}
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(name),
		pulse.ClientApplicationIconName("audio-card"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// Devices lists sinks or non-monitor sources.
func (b *PulseBackend) Devices(_ context.Context, flow Flow) ([]DeviceInfo, error) {
	client, err := b.connect()
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return listPulseDevices(client, flow)
}

func listPulseDevices(client *pulse.Client, flow Flow) ([]DeviceInfo, error) {
	switch flow {
	case FlowPlayback:
		var sinks pulseproto.GetSinkInfoListReply
		if err := client.RawRequest(&pulseproto.GetSinkInfoList{}, &sinks); err != nil {
			return nil, fmt.Errorf("list sinks: %w", err)
		}
		devices := make([]DeviceInfo, 0, len(sinks))
		for _, sink := range sinks {
			if sink == nil {
				continue
			}
			devices = append(devices, deviceFromSink(sink))
		}
		return devices, nil
	case FlowRecording:
		var sources pulseproto.GetSourceInfoListReply
		if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sources); err != nil {
			return nil, fmt.Errorf("list sources: %w", err)
		}
		devices := make([]DeviceInfo, 0, len(sources))
		for _, source := range sources {
			if source == nil || strings.HasSuffix(source.SourceName, monitorSuffix) {
				continue
			}
			devices = append(devices, deviceFromSource(source))
		}
		return devices, nil
	default:
		return nil, fmt.Errorf("unknown flow %d", int(flow))
	}
}

func deviceFromSink(sink *pulseproto.GetSinkInfoReply) DeviceInfo {
	unplugged := false
	for _, port := range sink.Ports {
		if port.Name == sink.ActivePortName && port.Available == pulsePortNo {
			unplugged = true
		}
	}
	return DeviceInfo{
		ID:           sink.SinkName,
		InstanceID:   pulseInstanceID(sink.SinkName),
		FriendlyName: sink.Device,
		State:        pulseState(sink.State, unplugged),
		Flow:         FlowPlayback,
	}
}

func deviceFromSource(source *pulseproto.GetSourceInfoReply) DeviceInfo {
	unplugged := false
	for _, port := range source.Ports {
		if port.Name == source.ActivePortName && port.Available == pulsePortNo {
			unplugged = true
		}
	}
	return DeviceInfo{
		ID:           source.SourceName,
		InstanceID:   pulseInstanceID(source.SourceName),
		FriendlyName: source.Device,
		State:        pulseState(source.State, unplugged),
		Flow:         FlowRecording,
	}
}

// pulseState maps sink/source state plus active-port availability.
// Suspended devices are reported as disabled since visibility is toggled by
// suspending.
func pulseState(state uint32, unplugged bool) State {
	switch {
	case unplugged:
		return StateUnplugged
	case state == pulseStateSuspended:
		return StateDisabled
	default:
		return StateActive
	}
}

// pulseInstanceID drops the profile suffix so the id survives profile
// switches: "alsa_output.usb-X-00.analog-stereo" -> "alsa_output.usb-X-00".
func pulseInstanceID(name string) string {
	if strings.Count(name, ".") < 2 {
		return name
	}
	return name[:strings.LastIndex(name, ".")]
}

// SetDeviceVolume sets every channel of a sink or source.
func (b *PulseBackend) SetDeviceVolume(_ context.Context, deviceID string, scalar float32) error {
	client, err := b.connect()
	if err != nil {
		return err
	}
	defer client.Close()

	flow, channels, err := lookupPulseDevice(client, deviceID)
	if err != nil {
		return err
	}
	return setPulseVolume(client, flow, deviceID, channels, scalar)
}

// SetDefaultVolume sets the default sink or source volume.
func (b *PulseBackend) SetDefaultVolume(_ context.Context, flow Flow, scalar float32) error {
	client, err := b.connect()
	if err != nil {
		return err
	}
	defer client.Close()

	var name string
	switch flow {
	case FlowPlayback:
		sink, err := client.DefaultSink()
		if err != nil {
			return fmt.Errorf("read default sink: %w", err)
		}
		name = sink.ID()
	case FlowRecording:
		source, err := client.DefaultSource()
		if err != nil {
			return fmt.Errorf("read default source: %w", err)
		}
		name = source.ID()
	default:
		return fmt.Errorf("unknown flow %d", int(flow))
	}

	_, channels, err := lookupPulseDevice(client, name)
	if err != nil {
		return err
	}
	return setPulseVolume(client, flow, name, channels, scalar)
}

func lookupPulseDevice(client *pulse.Client, name string) (Flow, int, error) {
	var sinks pulseproto.GetSinkInfoListReply
	if err := client.RawRequest(&pulseproto.GetSinkInfoList{}, &sinks); err != nil {
		return 0, 0, fmt.Errorf("list sinks: %w", err)
	}
	for _, sink := range sinks {
		if sink != nil && sink.SinkName == name {
			return FlowPlayback, len(sink.ChannelVolumes), nil
		}
	}

	var sources pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sources); err != nil {
		return 0, 0, fmt.Errorf("list sources: %w", err)
	}
	for _, source := range sources {
		if source != nil && source.SourceName == name {
			return FlowRecording, len(source.ChannelVolumes), nil
		}
	}
	return 0, 0, fmt.Errorf("pulse device %q not found", name)
}

func setPulseVolume(client *pulse.Client, flow Flow, name string, channels int, scalar float32) error {
	volumes := pulseChannelVolumes(channels, scalar)
	var err error
	switch flow {
	case FlowPlayback:
		err = client.RawRequest(&pulseproto.SetSinkVolume{
			SinkIndex:      undefinedIndex,
			SinkName:       name,
			ChannelVolumes: volumes,
		}, nil)
	default:
		err = client.RawRequest(&pulseproto.SetSourceVolume{
			SourceIndex:    undefinedIndex,
			SourceName:     name,
			ChannelVolumes: volumes,
		}, nil)
	}
	if err != nil {
		return fmt.Errorf("set %s volume on %q: %w", flow, name, err)
	}
	return nil
}

// pulseChannelVolumes spreads a linear scalar across channels.
func pulseChannelVolumes(channels int, scalar float32) pulseproto.ChannelVolumes {
	if channels <= 0 {
		channels = 2
	}
	clamped := math.Min(math.Max(float64(scalar), 0), 1)
	level := uint32(math.Round(clamped * volumeNorm))
	volumes := make(pulseproto.ChannelVolumes, channels)
	for i := range volumes {
		volumes[i] = level
	}
	return volumes
}

// NewPolicyClient opens one connection that serves the whole run.
func (b *PulseBackend) NewPolicyClient(_ context.Context) (PolicyClient, error) {
	client, err := b.connect()
	if err != nil {
		return nil, err
	}
	return &pulsePolicy{client: client}, nil
}

type pulsePolicy struct {
	client *pulse.Client
}

// SetDefaultEndpoint has no per-role defaults in Pulse; every role maps to
// the single default sink or source.
func (p *pulsePolicy) SetDefaultEndpoint(_ context.Context, deviceID string, _ Role) error {
	if p.client == nil {
		return errors.New("pulse policy client is closed")
	}
	flow, _, err := lookupPulseDevice(p.client, deviceID)
	if err != nil {
		return err
	}
	if flow == FlowPlayback {
		err = p.client.RawRequest(&pulseproto.SetDefaultSink{SinkName: deviceID}, nil)
	} else {
		err = p.client.RawRequest(&pulseproto.SetDefaultSource{SourceName: deviceID}, nil)
	}
	if err != nil {
		return fmt.Errorf("set default %s %q: %w", flow, deviceID, err)
	}
	return nil
}

// SetEndpointVisibility suspends (hides) or resumes a sink or source.
func (p *pulsePolicy) SetEndpointVisibility(_ context.Context, deviceID string, visible bool) error {
	if p.client == nil {
		return errors.New("pulse policy client is closed")
	}
	flow, _, err := lookupPulseDevice(p.client, deviceID)
	if err != nil {
		return err
	}
	if flow == FlowPlayback {
		err = p.client.RawRequest(&pulseproto.SuspendSink{
			SinkIndex: undefinedIndex,
			SinkName:  deviceID,
			Suspend:   !visible,
		}, nil)
	} else {
		err = p.client.RawRequest(&pulseproto.SuspendSource{
			SourceIndex: undefinedIndex,
			SourceName:  deviceID,
			Suspend:     !visible,
		}, nil)
	}
	if err != nil {
		return fmt.Errorf("set visibility of %s %q: %w", flow, deviceID, err)
	}
	return nil
}

func (p *pulsePolicy) Close() error {
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
	return nil
}
