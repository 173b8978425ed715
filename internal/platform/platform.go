// Package platform selects the OS backends named in configuration.
package platform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/autostart/internal/audio"
	"github.com/rbright/autostart/internal/config"
	"github.com/rbright/autostart/internal/launch"
	"github.com/rbright/autostart/internal/power"
	"github.com/rbright/autostart/internal/window"
)

// ErrUnsupported is returned for a backend that does not exist on this OS.
var ErrUnsupported = errors.New("backend not supported on this platform")

// Backends are the OS surfaces one run drives. A nil surface means the
// backend is disabled or unavailable; the matching Err field says why.
type Backends struct {
	Audio    audio.Backend
	Windows  window.Surface
	Power    power.Switcher
	Launcher launch.Launcher

	AudioName  string
	WindowName string
	PowerName  string

	AudioErr  error
	WindowErr error
	PowerErr  error
}

// New builds backends from cfg. Selection never fails as a whole: a backend
// that cannot be built is left nil with its error recorded.
func New(cfg config.Config) Backends {
	b := Backends{Launcher: launch.NewLauncher()}

	b.AudioName = normalize(cfg.Audio.Backend)
	if b.AudioName != config.BackendNone {
		b.Audio, b.AudioName, b.AudioErr = audioBackend(b.AudioName, cfg.Audio)
	}

	b.WindowName = normalize(cfg.Window.Backend)
	if b.WindowName != config.BackendNone {
		b.Windows, b.WindowName, b.WindowErr = windowBackend(b.WindowName)
	}

	b.PowerName = normalize(cfg.Power.Backend)
	if b.PowerName != config.BackendNone {
		b.Power, b.PowerName, b.PowerErr = powerBackend(b.PowerName, cfg.Power)
	}

	return b
}

// Problems lists the backends that could not be built.
func (b Backends) Problems() []error {
	var problems []error
	for _, p := range []struct {
		concern string
		err     error
	}{
		{"audio", b.AudioErr},
		{"window", b.WindowErr},
		{"power", b.PowerErr},
	} {
		if p.err != nil {
			problems = append(problems, fmt.Errorf("%s backend: %w", p.concern, p.err))
		}
	}
	return problems
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return config.BackendAuto
	}
	return name
}

func unsupported(name string) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, name)
}
