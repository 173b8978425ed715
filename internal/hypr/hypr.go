// Package hypr implements the window surface on Hyprland via hyprctl.
package hypr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// MinimizedWorkspace is the special workspace that stands in for "iconic".
const MinimizedWorkspace = "special:minimized"

// Available reports whether a Hyprland session and hyprctl are reachable.
func Available() error {
	if strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")) == "" {
		return errors.New("HYPRLAND_INSTANCE_SIGNATURE is not set")
	}
	if _, err := exec.LookPath("hyprctl"); err != nil {
		return fmt.Errorf("hyprctl not found in PATH: %w", err)
	}
	return nil
}

func runHyprctlOutput(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "hyprctl", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return out, nil
}

// runHyprctlJSON executes a JSON-returning hyprctl subcommand.
func runHyprctlJSON(ctx context.Context, target string) ([]byte, error) {
	return runHyprctlOutput(ctx, "-j", target)
}

// dispatch runs a hyprctl dispatcher. hyprctl reports dispatcher failures on
// stdout with a zero exit status, so anything other than "ok" is an error.
func dispatch(ctx context.Context, args ...string) error {
	out, err := runHyprctlOutput(ctx, append([]string{"dispatch"}, args...)...)
	if err != nil {
		return err
	}
	if reply := strings.TrimSpace(string(out)); reply != "" && reply != "ok" {
		return fmt.Errorf("hyprctl dispatch %s: %s", strings.Join(args, " "), reply)
	}
	return nil
}
