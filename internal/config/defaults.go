package config

import (
	"slices"

	"github.com/rbright/autostart/internal/window"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Audio: AudioConfig{
			Backend: BackendAuto,
			AppName: "autostart",
		},
		Window: WindowConfig{
			Backend:       BackendAuto,
			SystemClasses: slices.Clone(window.DefaultSystemClasses),
		},
		Power: PowerConfig{
			Backend: BackendAuto,
			Command: "powerprofilesctl",
		},
		Minimize:      window.DefaultDirectTimings,
		ForceMinimize: window.DefaultMonitorTimings,
	}
}
