//go:build !windows

package launch

import (
	"context"
	"fmt"
	"os/exec"
)

// ExecLauncher starts processes with os/exec. There is no portable
// start-minimized hint, so StartMinimized is left to the minimizers.
type ExecLauncher struct{}

// NewLauncher returns the platform launcher.
func NewLauncher() Launcher {
	return ExecLauncher{}
}

func (ExecLauncher) Launch(_ context.Context, req Request) (Process, error) {
	args, err := SplitArgs(req.Args)
	if err != nil {
		return nil, err
	}

	// Not CommandContext: launched applications outlive the run.
	cmd := exec.Command(req.Path, args...)
	cmd.Dir = req.Dir
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", req.Path, err)
	}

	proc := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(proc.done)
	}()
	return proc, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func (p *execProcess) PID() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *execProcess) Release() error {
	return nil
}
