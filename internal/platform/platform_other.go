//go:build !windows

package platform

import (
	"fmt"
	"os/exec"

	"github.com/rbright/autostart/internal/audio"
	"github.com/rbright/autostart/internal/config"
	"github.com/rbright/autostart/internal/hypr"
	"github.com/rbright/autostart/internal/power"
	"github.com/rbright/autostart/internal/window"
)

func audioBackend(name string, cfg config.AudioConfig) (audio.Backend, string, error) {
	switch name {
	case config.BackendAuto, config.BackendPulse:
		return audio.NewPulseBackend(cfg.AppName), config.BackendPulse, nil
	default:
		return nil, name, unsupported(name)
	}
}

func windowBackend(name string) (window.Surface, string, error) {
	switch name {
	case config.BackendAuto, config.BackendHypr:
		if err := hypr.Available(); err != nil {
			return nil, config.BackendHypr, err
		}
		return hypr.Surface{}, config.BackendHypr, nil
	default:
		return nil, name, unsupported(name)
	}
}

func powerBackend(name string, cfg config.PowerConfig) (power.Switcher, string, error) {
	switch name {
	case config.BackendAuto, config.BackendPowerProfiles:
		if _, err := exec.LookPath(cfg.Command); err != nil {
			return nil, config.BackendPowerProfiles, fmt.Errorf("%s not found in PATH: %w", cfg.Command, err)
		}
		return &power.PowerProfiles{Command: cfg.Command}, config.BackendPowerProfiles, nil
	default:
		return nil, name, unsupported(name)
	}
}
