package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rbright/autostart/internal/audio"
	"github.com/rbright/autostart/internal/clock"
	"github.com/rbright/autostart/internal/config"
	"github.com/rbright/autostart/internal/platform"
	"github.com/rbright/autostart/internal/power"
)

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "autostart")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestExecuteRunWithoutProfileIsUsageError(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"run"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "requires a profile path")
}

func TestRunnerRunExecutesProfile(t *testing.T) {
	paths := setupRunnerEnv(t)
	profilePath := writeProfile(t, paths.dir, `[
  {"Type": "Delay", "DelaySeconds": 5},
  {"Type": "SetPowerPlan", "PowerPlanName": "Balanced"},
  {"Type": "SetAudioVolume", "AudioVolumePercent": 40}
]`)

	switcher := &stubPower{plans: []power.Plan{
		{ID: power.PlanBalanced, Name: "Balanced"},
		{ID: power.PlanHighPerformance, Name: "High performance", Active: true},
	}}
	sound := &stubAudio{}
	fake := clock.NewFake(time.Unix(0, 0))

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:   &stdout,
		Stderr:   &stderr,
		Clock:    fake,
		Platform: fixedBackends(platform.Backends{Audio: sound, Power: switcher}),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "run", profilePath})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Equal(t, "3 actions, 0 failed\n", stdout.String())
	require.Equal(t, 5*time.Second, fake.Slept())
	require.Equal(t, []uuid.UUID{power.PlanBalanced}, switcher.activated)
	require.Equal(t, []float32{0.4}, sound.defaultVolumes)
}

func TestRunnerRunReportsFailuresButSucceeds(t *testing.T) {
	paths := setupRunnerEnv(t)
	profilePath := writeProfile(t, paths.dir, `[
  {"Type": "SetPowerPlan", "PowerPlanName": "Turbo"},
  {"Type": "Delay", "DelaySeconds": 1}
]`)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:   &stdout,
		Stderr:   &stderr,
		Clock:    clock.NewFake(time.Unix(0, 0)),
		Platform: fixedBackends(platform.Backends{Power: &stubPower{}}),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "run", profilePath})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "2 actions, 1 failed\n", stdout.String())
	require.Contains(t, stderr.String(), "Turbo")
}

func TestRunnerRunBareProfilePath(t *testing.T) {
	paths := setupRunnerEnv(t)
	profilePath := writeProfile(t, paths.dir, `[]`)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:   &stdout,
		Stderr:   &stderr,
		Platform: fixedBackends(platform.Backends{}),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, profilePath})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "0 actions, 0 failed\n", stdout.String())
}

func TestRunnerRunMalformedProfileFails(t *testing.T) {
	paths := setupRunnerEnv(t)
	profilePath := writeProfile(t, paths.dir, `{"not": "a list"`)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:   &stdout,
		Stderr:   &stderr,
		Platform: fixedBackends(platform.Backends{}),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "run", profilePath})
	require.Equal(t, 1, exitCode)
	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), "error:")
}

func TestRunnerRunCanceledExits130(t *testing.T) {
	paths := setupRunnerEnv(t)
	profilePath := writeProfile(t, paths.dir, `[{"Type": "Delay", "DelaySeconds": 1}]`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:   &stdout,
		Stderr:   &stderr,
		Clock:    clock.NewFake(time.Unix(0, 0)),
		Platform: fixedBackends(platform.Backends{}),
	}

	exitCode := runner.Execute(ctx, []string{"--config", paths.configPath, "run", profilePath})
	require.Equal(t, exitCanceled, exitCode)
}

func TestRunnerResolveBackfillsDeviceIDs(t *testing.T) {
	paths := setupRunnerEnv(t)
	profilePath := writeProfile(t, paths.dir, `[
  {"Type": "SetAudioDevice", "AudioDeviceName": "Desk Speakers"},
  {"Type": "DisableAudioDevice", "AudioDeviceName": "Ghost Mic"}
]`)

	sound := &stubAudio{devices: map[audio.Flow][]audio.DeviceInfo{
		audio.FlowPlayback: {{
			ID:           "{0.0.0.00000000}.{speakers}",
			InstanceID:   "SWD\\MMDEVAPI\\speakers",
			FriendlyName: "Desk Speakers",
			State:        audio.StateActive,
			Flow:         audio.FlowPlayback,
		}},
	}}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:   &stdout,
		Stderr:   &stderr,
		Platform: fixedBackends(platform.Backends{Audio: sound}),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "resolve", profilePath})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Contains(t, stdout.String(), "resolved: action 0")
	require.Contains(t, stdout.String(), "not found: action 1")

	saved, err := os.ReadFile(profilePath)
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(saved, &records))
	require.Len(t, records, 2)
	require.Equal(t, "{0.0.0.00000000}.{speakers}", records[0]["AudioDeviceId"])
	require.Equal(t, "SWD\\MMDEVAPI\\speakers", records[0]["AudioDeviceInstanceId"])
	require.NotContains(t, records[1], "AudioDeviceId")
}

func TestRunnerResolveRefusesProfileWithSkippedRecords(t *testing.T) {
	paths := setupRunnerEnv(t)
	original := `[{"Type": "Teleport"}, {"Type": "Delay", "DelaySeconds": 1}]`
	profilePath := writeProfile(t, paths.dir, original)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:   &stdout,
		Stderr:   &stderr,
		Platform: fixedBackends(platform.Backends{Audio: &stubAudio{}}),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "resolve", profilePath})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "not rewriting")

	saved, err := os.ReadFile(profilePath)
	require.NoError(t, err)
	require.Equal(t, original, string(saved))
}

func TestRunnerDevicesText(t *testing.T) {
	paths := setupRunnerEnv(t)
	sound := &stubAudio{devices: map[audio.Flow][]audio.DeviceInfo{
		audio.FlowPlayback:  {{ID: "spk", FriendlyName: "Speakers", State: audio.StateActive, Flow: audio.FlowPlayback}},
		audio.FlowRecording: {{ID: "mic", FriendlyName: "Mic", State: audio.StateDisabled, Flow: audio.FlowRecording}},
	}}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:   &stdout,
		Stderr:   &stderr,
		Platform: fixedBackends(platform.Backends{Audio: sound, AudioName: "pulse"}),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "devices"})
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), `id=spk | instance= | name="Speakers" | state=active`)
	require.Contains(t, stdout.String(), `id=mic | instance= | name="Mic (disabled)" | state=disabled`)
}

func TestRunnerDevicesJSON(t *testing.T) {
	paths := setupRunnerEnv(t)
	sound := &stubAudio{devices: map[audio.Flow][]audio.DeviceInfo{
		audio.FlowPlayback: {{ID: "spk", InstanceID: "hw:0", FriendlyName: "Speakers", State: audio.StateActive, Flow: audio.FlowPlayback}},
	}}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:   &stdout,
		Stderr:   &stderr,
		Platform: fixedBackends(platform.Backends{Audio: sound}),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "devices", "--json"})
	require.Equal(t, 0, exitCode)

	var got []deviceJSON
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "spk", got[0].ID)
	require.Equal(t, "hw:0", got[0].InstanceID)
	require.Equal(t, "Speakers", got[0].Name)
}

func TestRunnerDevicesWithoutAudioBackendFails(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout: &stdout,
		Stderr: &stderr,
		Platform: fixedBackends(platform.Backends{
			AudioName: "pulse",
			AudioErr:  errors.New("pulse: connection refused"),
		}),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "devices"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "connection refused")
}

func TestRunnerPlansMarksActive(t *testing.T) {
	paths := setupRunnerEnv(t)
	switcher := &stubPower{plans: []power.Plan{
		{ID: power.PlanBalanced, Name: "Balanced", Active: true},
		{ID: power.PlanPowerSaver, Name: "Power saver"},
	}}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:   &stdout,
		Stderr:   &stderr,
		Platform: fixedBackends(platform.Backends{Power: switcher}),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "plans"})
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "id="+power.PlanBalanced.String()+` | name="Balanced (active)"`)
	require.Contains(t, stdout.String(), "id="+power.PlanPowerSaver.String()+` | name="Power saver"`)
}

func TestRunnerPlansJSON(t *testing.T) {
	paths := setupRunnerEnv(t)
	switcher := &stubPower{plans: []power.Plan{{ID: power.PlanBalanced, Name: "Balanced", Active: true}}}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:   &stdout,
		Stderr:   &stderr,
		Platform: fixedBackends(platform.Backends{Power: switcher}),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "plans", "--json"})
	require.Equal(t, 0, exitCode)

	var got []planJSON
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	require.Equal(t, []planJSON{{ID: power.PlanBalanced.String(), Name: "Balanced", Active: true}}, got)
}

func TestRunnerDoctorReportsDisabledBackends(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout: &stdout,
		Stderr: &stderr,
		Platform: fixedBackends(platform.Backends{
			AudioName:  config.BackendNone,
			WindowName: config.BackendNone,
			PowerName:  config.BackendNone,
		}),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "doctor"})
	require.Equal(t, 0, exitCode, stdout.String())
	require.Contains(t, stdout.String(), "disabled by config")
}

func TestRunnerConfigErrorFails(t *testing.T) {
	paths := setupRunnerEnv(t)
	require.NoError(t, os.WriteFile(paths.configPath, []byte(`{"log": {"level": "loud"}}`), 0o600))

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Platform: fixedBackends(platform.Backends{})}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "plans"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "log.level")
}

type runnerTestPaths struct {
	dir        string
	configPath string
}

func setupRunnerEnv(t *testing.T) runnerTestPaths {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))

	configPath := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(configPath, []byte("{}\n"), 0o600))

	return runnerTestPaths{dir: dir, configPath: configPath}
}

func writeProfile(t *testing.T, dir string, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "profile.autostart")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func fixedBackends(b platform.Backends) func(config.Config) platform.Backends {
	return func(config.Config) platform.Backends { return b }
}

type stubAudio struct {
	devices        map[audio.Flow][]audio.DeviceInfo
	defaultVolumes []float32
}

func (s *stubAudio) Devices(_ context.Context, flow audio.Flow) ([]audio.DeviceInfo, error) {
	return s.devices[flow], nil
}

func (*stubAudio) NewPolicyClient(context.Context) (audio.PolicyClient, error) {
	return nil, audio.ErrUnsupported
}

func (*stubAudio) SetDeviceVolume(context.Context, string, float32) error { return nil }

func (s *stubAudio) SetDefaultVolume(_ context.Context, _ audio.Flow, scalar float32) error {
	s.defaultVolumes = append(s.defaultVolumes, scalar)
	return nil
}

type stubPower struct {
	plans     []power.Plan
	activated []uuid.UUID
}

func (s *stubPower) Plans(context.Context) ([]power.Plan, error) { return s.plans, nil }

func (s *stubPower) Activate(_ context.Context, id uuid.UUID) error {
	s.activated = append(s.activated, id)
	return nil
}
