//go:build windows

package platform

import (
	"github.com/rbright/autostart/internal/audio"
	"github.com/rbright/autostart/internal/config"
	"github.com/rbright/autostart/internal/power"
	"github.com/rbright/autostart/internal/window"
)

func audioBackend(name string, cfg config.AudioConfig) (audio.Backend, string, error) {
	switch name {
	case config.BackendAuto, config.BackendCoreAudio:
		return audio.NewCoreAudioBackend(), config.BackendCoreAudio, nil
	case config.BackendPulse:
		return audio.NewPulseBackend(cfg.AppName), config.BackendPulse, nil
	default:
		return nil, name, unsupported(name)
	}
}

func windowBackend(name string) (window.Surface, string, error) {
	switch name {
	case config.BackendAuto, config.BackendWin32:
		return window.NewWin32(), config.BackendWin32, nil
	default:
		return nil, name, unsupported(name)
	}
}

func powerBackend(name string, _ config.PowerConfig) (power.Switcher, string, error) {
	switch name {
	case config.BackendAuto, config.BackendPowrProf:
		return power.NewPowrProf(), config.BackendPowrProf, nil
	default:
		return nil, name, unsupported(name)
	}
}
