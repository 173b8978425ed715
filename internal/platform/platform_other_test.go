//go:build !windows

package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/autostart/internal/audio"
	"github.com/rbright/autostart/internal/config"
	"github.com/rbright/autostart/internal/hypr"
	"github.com/rbright/autostart/internal/power"
)

func TestNewAutoSelectsLinuxBackends(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, dir, "hyprctl")
	writeStub(t, dir, "powerprofilesctl")
	t.Setenv("PATH", dir)
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "test")

	b := New(config.Default())
	require.Empty(t, b.Problems())
	require.NotNil(t, b.Launcher)

	require.Equal(t, config.BackendPulse, b.AudioName)
	require.IsType(t, &audio.PulseBackend{}, b.Audio)
	require.Equal(t, config.BackendHypr, b.WindowName)
	require.Equal(t, hypr.Surface{}, b.Windows)
	require.Equal(t, config.BackendPowerProfiles, b.PowerName)
	require.Equal(t, &power.PowerProfiles{Command: "powerprofilesctl"}, b.Power)
}

func TestNewReportsUnavailableBackends(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")

	b := New(config.Default())
	require.Nil(t, b.Windows)
	require.Nil(t, b.Power)
	require.NotNil(t, b.Audio)
	problems := b.Problems()
	require.Len(t, problems, 2)
	require.Contains(t, problems[0].Error(), "window backend")
	require.Contains(t, problems[1].Error(), "powerprofilesctl not found")
}

func TestNewRejectsWindowsOnlyBackends(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.Backend = config.BackendCoreAudio
	cfg.Window.Backend = config.BackendWin32
	cfg.Power.Backend = config.BackendPowrProf

	b := New(cfg)
	require.Nil(t, b.Audio)
	require.Nil(t, b.Windows)
	require.Nil(t, b.Power)
	require.Len(t, b.Problems(), 3)
	for _, problem := range b.Problems() {
		require.ErrorIs(t, problem, ErrUnsupported)
	}
}

func TestNewHonorsNone(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.Backend = "NONE"
	cfg.Window.Backend = config.BackendNone
	cfg.Power.Backend = config.BackendNone

	b := New(cfg)
	require.Nil(t, b.Audio)
	require.Nil(t, b.Windows)
	require.Nil(t, b.Power)
	require.Empty(t, b.Problems())
	require.Equal(t, config.BackendNone, b.AudioName)
}

func writeStub(t *testing.T, dir string, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755))
}
