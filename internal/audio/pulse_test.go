package audio

import (
	"context"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestDeviceFromSinkMapsStateAndIdentity(t *testing.T) {
	sink := &pulseproto.GetSinkInfoReply{
		SinkName:       "alsa_output.usb-Focusrite_Scarlett-00.analog-stereo",
		Device:         "Scarlett 2i2 Analog Stereo",
		ActivePortName: "analog-output",
	}
	setPorts(t, &sink.Ports, []pulsePort{{name: "analog-output", available: 2}})

	dev := deviceFromSink(sink)
	require.Equal(t, "alsa_output.usb-Focusrite_Scarlett-00.analog-stereo", dev.ID)
	require.Equal(t, "alsa_output.usb-Focusrite_Scarlett-00", dev.InstanceID)
	require.Equal(t, "Scarlett 2i2 Analog Stereo", dev.FriendlyName)
	require.Equal(t, StateActive, dev.State)
	require.Equal(t, FlowPlayback, dev.Flow)
}

func TestDeviceFromSourceUnpluggedPort(t *testing.T) {
	source := &pulseproto.GetSourceInfoReply{
		SourceName:     "alsa_input.pci-0000_00_1f.3.analog-stereo",
		Device:         "Built-in Audio",
		ActivePortName: "analog-input-mic",
		State:          pulseStateSuspended,
	}
	setPorts(t, &source.Ports, []pulsePort{
		{name: "analog-input-linein", available: 2},
		{name: "analog-input-mic", available: 1},
	})

	dev := deviceFromSource(source)
	require.Equal(t, StateUnplugged, dev.State)
	require.Equal(t, FlowRecording, dev.Flow)
}

func TestPulseState(t *testing.T) {
	require.Equal(t, StateActive, pulseState(0, false))
	require.Equal(t, StateActive, pulseState(1, false))
	require.Equal(t, StateDisabled, pulseState(pulseStateSuspended, false))
	require.Equal(t, StateUnplugged, pulseState(pulseStateSuspended, true))
}

func TestPulseInstanceID(t *testing.T) {
	require.Equal(t, "bluez_output.AA_BB", pulseInstanceID("bluez_output.AA_BB.1"))
	require.Equal(t, "null", pulseInstanceID("null"))
	require.Equal(t, "auto_null.monitor", pulseInstanceID("auto_null.monitor"))
}

func TestPulseChannelVolumes(t *testing.T) {
	require.Equal(t, pulseproto.ChannelVolumes{volumeNorm, volumeNorm}, pulseChannelVolumes(2, 1))
	require.Equal(t, pulseproto.ChannelVolumes{volumeNorm / 2}, pulseChannelVolumes(1, 0.5))
	require.Equal(t, pulseproto.ChannelVolumes{0, 0}, pulseChannelVolumes(0, -3))
	require.Len(t, pulseChannelVolumes(6, 0.25), 6)
}

func TestPulseBackendFailsWhenServerUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	backend := NewPulseBackend("autostart-test")

	_, err := backend.Devices(context.Background(), FlowPlayback)
	require.Error(t, err)

	_, err = backend.NewPolicyClient(context.Background())
	require.Error(t, err)

	err = backend.SetDefaultVolume(context.Background(), FlowRecording, 0.5)
	require.Error(t, err)
}

func TestClosedPulsePolicyRejectsCalls(t *testing.T) {
	policy := &pulsePolicy{}
	require.NoError(t, policy.Close())
	require.Error(t, policy.SetDefaultEndpoint(context.Background(), "sink", RoleConsole))
	require.Error(t, policy.SetEndpointVisibility(context.Background(), "sink", false))
}

type pulsePort struct {
	name      string
	available uint32
}

// setPorts fills an anonymous-struct port slice on a pulse reply.
func setPorts(t *testing.T, target any, ports []pulsePort) {
	t.Helper()

	field := reflect.ValueOf(target).Elem()
	sliceValue := reflect.MakeSlice(field.Type(), len(ports), len(ports))
	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}
	field.Set(sliceValue)
}
