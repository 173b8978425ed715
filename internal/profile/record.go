package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rbright/autostart/internal/action"
)

// record is the flat on-disk shape shared by every kind.
type record struct {
	Type                   action.Kind `json:"Type"`
	MinimizeWindow         bool        `json:"MinimizeWindow,omitempty"`
	ForceMinimizeWindow    bool        `json:"ForceMinimizeWindow,omitempty"`
	FilePath               string      `json:"FilePath,omitempty"`
	Arguments              string      `json:"Arguments,omitempty"`
	DelaySeconds           int         `json:"DelaySeconds,omitempty"`
	AudioDeviceID          string      `json:"AudioDeviceId,omitempty"`
	AudioDeviceInstanceID  string      `json:"AudioDeviceInstanceId,omitempty"`
	AudioDeviceName        string      `json:"AudioDeviceName,omitempty"`
	PowerPlanID            string      `json:"PowerPlanId,omitempty"`
	PowerPlanName          string      `json:"PowerPlanName,omitempty"`
	AudioVolumePercent     *int        `json:"AudioVolumePercent,omitempty"`
	AdjustPlaybackVolume   bool        `json:"AdjustPlaybackVolume,omitempty"`
	PlaybackVolumePercent  *int        `json:"PlaybackVolumePercent,omitempty"`
	AdjustRecordingVolume  bool        `json:"AdjustRecordingVolume,omitempty"`
	RecordingVolumePercent *int        `json:"RecordingVolumePercent,omitempty"`
}

// numericKinds maps the legacy integer form of "Type" to kinds.
var numericKinds = []action.Kind{
	action.KindLaunch,
	action.KindSetAudioDevice,
	action.KindDelay,
	action.KindDisableAudioDevice,
	action.KindEnableAudioDevice,
	action.KindSetAudioVolume,
	action.KindSetPowerPlan,
}

// kindField accepts "Type" as either the enum name or its ordinal.
type kindField action.Kind

func (k *kindField) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*k = kindField(strings.TrimSpace(name))
		return nil
	}
	var ordinal int
	if err := json.Unmarshal(data, &ordinal); err == nil {
		if ordinal < 0 || ordinal >= len(numericKinds) {
			return fmt.Errorf("%w: %d", ErrUnknownKind, ordinal)
		}
		*k = kindField(numericKinds[ordinal])
		return nil
	}
	return fmt.Errorf("Type must be a string or integer, got %s", data)
}

// inboundRecord mirrors record with a lenient Type.
type inboundRecord struct {
	record
	Type kindField `json:"Type"`
}

func (c Codec) decodeRecord(raw json.RawMessage) (action.Action, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	if c.Strict {
		decoder.DisallowUnknownFields()
	}

	var in inboundRecord
	if err := decoder.Decode(&in); err != nil {
		return nil, err
	}
	rec := in.record
	rec.Type = action.Kind(in.Type)

	device := action.DeviceRef{
		ID:         strings.TrimSpace(rec.AudioDeviceID),
		InstanceID: strings.TrimSpace(rec.AudioDeviceInstanceID),
		Name:       strings.TrimSpace(rec.AudioDeviceName),
	}

	switch rec.Type {
	case action.KindLaunch:
		launch := &action.Launch{FilePath: strings.TrimSpace(rec.FilePath), Arguments: strings.TrimSpace(rec.Arguments)}
		launch.SetMinimizeWindow(rec.MinimizeWindow)
		launch.SetForceMinimizeWindow(rec.ForceMinimizeWindow)
		return launch, nil
	case action.KindDelay:
		return &action.Delay{Seconds: rec.DelaySeconds}, nil
	case action.KindSetAudioDevice:
		return &action.SetAudioDevice{Device: device}, nil
	case action.KindEnableAudioDevice:
		return &action.EnableAudioDevice{Device: device}, nil
	case action.KindDisableAudioDevice:
		return &action.DisableAudioDevice{Device: device}, nil
	case action.KindSetAudioVolume:
		volume := &action.SetAudioVolume{Device: device}
		if rec.AudioVolumePercent != nil {
			volume.Percent = action.Percent(*rec.AudioVolumePercent)
		}
		if rec.AdjustPlaybackVolume && rec.PlaybackVolumePercent != nil {
			volume.Playback = action.Percent(*rec.PlaybackVolumePercent)
		}
		if rec.AdjustRecordingVolume && rec.RecordingVolumePercent != nil {
			volume.Recording = action.Percent(*rec.RecordingVolumePercent)
		}
		return volume, nil
	case action.KindSetPowerPlan:
		id, err := parsePlanID(rec.PowerPlanID)
		if err != nil {
			return nil, err
		}
		return &action.SetPowerPlan{PlanID: id, PlanName: strings.TrimSpace(rec.PowerPlanName)}, nil
	case "":
		return nil, fmt.Errorf("%w: missing Type", ErrUnknownKind)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, strconv.Quote(string(rec.Type)))
	}
}

func encodeRecord(act action.Action) (record, error) {
	rec := record{Type: act.Kind()}

	setDevice := func(ref action.DeviceRef) {
		rec.AudioDeviceID = ref.ID
		rec.AudioDeviceInstanceID = ref.InstanceID
		rec.AudioDeviceName = ref.Name
	}

	switch a := act.(type) {
	case *action.Launch:
		rec.FilePath = a.FilePath
		rec.Arguments = strings.TrimSpace(a.Arguments)
		rec.MinimizeWindow = a.MinimizeWindow()
		rec.ForceMinimizeWindow = a.ForceMinimizeWindow()
	case *action.Delay:
		rec.DelaySeconds = a.Seconds
	case *action.SetAudioDevice:
		setDevice(a.Device)
	case *action.EnableAudioDevice:
		setDevice(a.Device)
	case *action.DisableAudioDevice:
		setDevice(a.Device)
	case *action.SetAudioVolume:
		setDevice(a.Device)
		if a.Percent != nil {
			rec.AudioVolumePercent = action.Percent(*a.Percent)
		}
		if a.Playback != nil {
			rec.AdjustPlaybackVolume = true
			rec.PlaybackVolumePercent = action.Percent(*a.Playback)
		}
		if a.Recording != nil {
			rec.AdjustRecordingVolume = true
			rec.RecordingVolumePercent = action.Percent(*a.Recording)
		}
	case *action.SetPowerPlan:
		if a.PlanID != uuid.Nil {
			rec.PowerPlanID = a.PlanID.String()
		}
		rec.PowerPlanName = a.PlanName
	default:
		return record{}, fmt.Errorf("%w: %T", ErrUnknownKind, act)
	}
	return rec, nil
}
