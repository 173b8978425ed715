// Package launch starts the applications named by launch actions.
package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when the launch target does not exist.
var ErrNotFound = errors.New("launch target not found")

// Request describes one process start.
type Request struct {
	Path string
	Args string
	Dir  string
	// StartMinimized passes the OS "start minimized" hint where one exists.
	StartMinimized bool
}

// Process is a started process. Release frees OS resources once the caller
// no longer needs to observe it.
type Process interface {
	PID() int
	Exited() bool
	Release() error
}

// Launcher starts processes. Launch may return a nil Process without error
// when the OS hands the target to an already running program.
type Launcher interface {
	Launch(ctx context.Context, req Request) (Process, error)
}

// Target validates path and returns it cleaned. Bare names are searched on
// PATH by lookPath when they are not files relative to the current directory.
func Target(path string, lookPath func(string) (string, error)) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrNotFound)
	}
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return "", fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
		}
		return filepath.Clean(path), nil
	}
	if lookPath != nil && !strings.ContainsAny(path, `/\`) {
		if resolved, err := lookPath(path); err == nil {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, path)
}

// WorkingDir picks the directory a launched program starts in: the
// program's own directory, else the previous launch's directory, else the
// current directory.
func WorkingDir(path string, previous string) string {
	if dir := filepath.Dir(path); path != "" && dir != "." {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	if previous != "" {
		return previous
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return ""
}
