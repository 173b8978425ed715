//go:build !windows

package launch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExecLauncherRunsInDirWithSplitArgs(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	script := filepath.Join(dir, "app.sh")
	body := "#!/bin/sh\nprintf '%s|' \"$PWD\" \"$@\" > " + out + "\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	proc, err := NewLauncher().Launch(context.Background(), Request{
		Path: script,
		Args: `--name "two words"`,
		Dir:  dir,
	})
	require.NoError(t, err)
	require.Positive(t, proc.PID())
	require.Eventually(t, proc.Exited, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, proc.Release())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	resolvedDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	parts := strings.Split(strings.TrimSuffix(string(data), "|"), "|")
	require.Len(t, parts, 3)
	require.Contains(t, []string{dir, resolvedDir}, parts[0])
	require.Equal(t, []string{"--name", "two words"}, parts[1:])
}

func TestExecLauncherReportsStartFailure(t *testing.T) {
	_, err := NewLauncher().Launch(context.Background(), Request{Path: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)

	_, err = NewLauncher().Launch(context.Background(), Request{Path: "/bin/true", Args: `"unterminated`})
	require.ErrorContains(t, err, "unterminated quote")
}
