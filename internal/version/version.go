// Package version carries build metadata stamped with -ldflags.
package version

import "runtime"

// Name is the program name used in output, logs, and state paths.
const Name = "autostart"

// Overridden at link time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return Name + " " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// Attrs returns the build metadata as slog key/value pairs.
func Attrs() []any {
	return []any{"version", Version, "commit", Commit}
}
