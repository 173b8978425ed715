package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/user-config fallback rules for config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "autostart", "config.jsonc"), nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.New("unable to resolve user config directory")
	}

	return filepath.Join(dir, "autostart", "config.jsonc"), nil
}
