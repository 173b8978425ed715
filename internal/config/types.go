// Package config resolves, parses, validates, and defaults autostart configuration.
package config

import "github.com/rbright/autostart/internal/window"

// Config is the fully materialized runtime configuration.
type Config struct {
	Log    LogConfig
	Audio  AudioConfig
	Window WindowConfig
	Power  PowerConfig
	// Minimize bounds the direct minimizer.
	Minimize window.DirectTimings
	// ForceMinimize bounds the process-monitoring minimizer.
	ForceMinimize window.MonitorTimings
}

// LogConfig controls the JSONL log.
type LogConfig struct {
	Level string
	Path  string
}

// AudioConfig selects the audio endpoint backend.
type AudioConfig struct {
	Backend string
	// AppName is the client name announced to the sound server.
	AppName string
}

// WindowConfig selects the window-manager backend and candidate filtering.
type WindowConfig struct {
	Backend       string
	SystemClasses []string
}

// PowerConfig selects the power plan backend.
type PowerConfig struct {
	Backend string
	// Command is the powerprofilesctl executable.
	Command string
}

// Backend names accepted by the *.backend keys.
const (
	BackendAuto          = "auto"
	BackendNone          = "none"
	BackendCoreAudio     = "coreaudio"
	BackendPulse         = "pulse"
	BackendWin32         = "win32"
	BackendHypr          = "hypr"
	BackendPowrProf      = "powrprof"
	BackendPowerProfiles = "powerprofiles"
)

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
