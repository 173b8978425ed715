package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/autostart/internal/audio"
	"github.com/rbright/autostart/internal/window"
)

// runContext is per-run state owned by the dispatch loop. Only results is
// touched by minimizer goroutines.
type runContext struct {
	e *Executor

	resolver *audio.Resolver
	policy   audio.PolicyClient
	// policyErr remembers a failed construction so it is not retried per action.
	policyErr error

	lastDir string

	group   errgroup.Group
	mu      sync.Mutex
	results []window.Result
}

func newRunContext(e *Executor) *runContext {
	rc := &runContext{e: e}
	if backend := e.deps.Audio; backend != nil {
		rc.resolver = audio.NewResolver(func(ctx context.Context) ([]audio.DeviceInfo, error) {
			return audio.ListDevices(ctx, backend)
		}, e.logger)
	}
	return rc
}

// policyController returns a controller backed by the run's single policy
// client, constructing it on first use.
func (rc *runContext) policyController(ctx context.Context) (*audio.Controller, error) {
	backend := rc.e.deps.Audio
	if backend == nil {
		return nil, fmt.Errorf("audio: %w", ErrUnavailable)
	}
	if rc.policy == nil && rc.policyErr == nil {
		rc.policy, rc.policyErr = backend.NewPolicyClient(ctx)
	}
	if rc.policyErr != nil {
		return nil, fmt.Errorf("audio policy client: %w", rc.policyErr)
	}
	return audio.NewController(backend, rc.policy, rc.e.logger), nil
}

func (rc *runContext) volumeController() (*audio.Controller, error) {
	backend := rc.e.deps.Audio
	if backend == nil {
		return nil, fmt.Errorf("audio: %w", ErrUnavailable)
	}
	return audio.NewController(backend, nil, rc.e.logger), nil
}

// spawn starts a background minimizer. A panic inside it is converted into
// the group's error instead of crashing the run.
func (rc *runContext) spawn(ctx context.Context, index int, run func(context.Context) window.Result) {
	rc.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("minimizer for action %d panicked: %v", index, r)
			}
		}()
		result := run(ctx)
		rc.mu.Lock()
		rc.results = append(rc.results, result)
		rc.mu.Unlock()
		return nil
	})
}

// join waits for every spawned minimizer.
func (rc *runContext) join() []window.Result {
	if err := rc.group.Wait(); err != nil {
		rc.e.logger.Error("minimizer failed", "error", err.Error())
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.results
}

func (rc *runContext) close() {
	if rc.policy == nil {
		return
	}
	if err := rc.policy.Close(); err != nil {
		rc.e.logger.Debug("close audio policy client", "error", err.Error())
	}
	rc.policy = nil
}
