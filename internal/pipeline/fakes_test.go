package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/autostart/internal/audio"
	"github.com/rbright/autostart/internal/launch"
	"github.com/rbright/autostart/internal/power"
	"github.com/rbright/autostart/internal/window"
)

type fakeProcess struct {
	pid int

	mu       sync.Mutex
	released bool
}

func (p *fakeProcess) PID() int     { return p.pid }
func (p *fakeProcess) Exited() bool { return false }

func (p *fakeProcess) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = true
	return nil
}

func (p *fakeProcess) isReleased() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

type fakeLauncher struct {
	pid      int
	onLaunch func(launch.Request)

	requests  []launch.Request
	processes []*fakeProcess
}

func (l *fakeLauncher) Launch(_ context.Context, req launch.Request) (launch.Process, error) {
	if l.onLaunch != nil {
		l.onLaunch(req)
	}
	l.requests = append(l.requests, req)
	proc := &fakeProcess{pid: l.pid}
	l.processes = append(l.processes, proc)
	return proc, nil
}

func (l *fakeLauncher) lastProcess() *fakeProcess {
	return l.processes[len(l.processes)-1]
}

type fakePower struct {
	plans      []power.Plan
	onActivate func(uuid.UUID)
	activated  []uuid.UUID
}

func (p *fakePower) Plans(context.Context) ([]power.Plan, error) { return p.plans, nil }

func (p *fakePower) Activate(_ context.Context, id uuid.UUID) error {
	if p.onActivate != nil {
		p.onActivate(id)
	}
	p.activated = append(p.activated, id)
	return nil
}

type defaultCall struct {
	id   string
	role audio.Role
}

type fakePolicy struct {
	failAll    bool
	closed     bool
	defaults   []defaultCall
	visibility []string
}

func (p *fakePolicy) SetDefaultEndpoint(_ context.Context, id string, role audio.Role) error {
	if p.failAll {
		return errors.New("E_ACCESSDENIED")
	}
	p.defaults = append(p.defaults, defaultCall{id: id, role: role})
	return nil
}

func (p *fakePolicy) SetEndpointVisibility(_ context.Context, id string, visible bool) error {
	if p.failAll {
		return errors.New("E_ACCESSDENIED")
	}
	p.visibility = append(p.visibility, fmt.Sprintf("visible %s %t", id, visible))
	return nil
}

func (p *fakePolicy) Close() error {
	p.closed = true
	return nil
}

type fakeAudio struct {
	devices map[audio.Flow][]audio.DeviceInfo
	lists   map[audio.Flow]int

	policy          *fakePolicy
	policyErr       error
	policyAttempts  int
	policiesCreated int

	volumes []string
}

func newFakeAudio() *fakeAudio {
	return &fakeAudio{
		devices: map[audio.Flow][]audio.DeviceInfo{},
		lists:   map[audio.Flow]int{},
		policy:  &fakePolicy{},
	}
}

func (a *fakeAudio) Devices(_ context.Context, flow audio.Flow) ([]audio.DeviceInfo, error) {
	a.lists[flow]++
	return a.devices[flow], nil
}

func (a *fakeAudio) listCount(flow audio.Flow) int { return a.lists[flow] }

func (a *fakeAudio) NewPolicyClient(context.Context) (audio.PolicyClient, error) {
	a.policyAttempts++
	if a.policyErr != nil {
		return nil, a.policyErr
	}
	a.policiesCreated++
	return a.policy, nil
}

func (a *fakeAudio) SetDeviceVolume(_ context.Context, id string, scalar float32) error {
	a.volumes = append(a.volumes, fmt.Sprintf("device %s %.2f", id, scalar))
	return nil
}

func (a *fakeAudio) SetDefaultVolume(_ context.Context, flow audio.Flow, scalar float32) error {
	a.volumes = append(a.volumes, fmt.Sprintf("default %s %.2f", flow, scalar))
	return nil
}

// fakeSurface serves visible windows, plus late windows from the second
// enumeration on. Minimize makes a window iconic. watchGate, when set, holds
// every enumeration after the first until it is closed.
type fakeSurface struct {
	mu sync.Mutex

	visible map[window.Handle]window.Info
	late    map[window.Handle]window.Info
	main    map[int]window.Handle
	minimal map[window.Handle]bool

	enumerations   int
	mainWindowGate chan struct{}
	watchGate      chan struct{}
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		visible: map[window.Handle]window.Info{},
		late:    map[window.Handle]window.Info{},
		main:    map[int]window.Handle{},
		minimal: map[window.Handle]bool{},
	}
}

func (s *fakeSurface) VisibleWindows(ctx context.Context) ([]window.Handle, error) {
	s.mu.Lock()
	gated := s.watchGate != nil && s.enumerations > 0
	s.mu.Unlock()
	if gated {
		select {
		case <-s.watchGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.enumerations++
	var handles []window.Handle
	for h := range s.visible {
		handles = append(handles, h)
	}
	if s.enumerations > 1 {
		for h := range s.late {
			handles = append(handles, h)
		}
	}
	return handles, nil
}

func (s *fakeSurface) MainWindow(ctx context.Context, pid int) (window.Handle, error) {
	if s.mainWindowGate != nil {
		select {
		case <-s.mainWindowGate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.main[pid], nil
}

func (s *fakeSurface) info(h window.Handle) (window.Info, bool) {
	if info, ok := s.visible[h]; ok {
		return info, true
	}
	info, ok := s.late[h]
	return info, ok
}

func (s *fakeSurface) Inspect(_ context.Context, h window.Handle) (window.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.info(h)
	if !ok {
		return window.Info{}, errors.New("invalid window handle")
	}
	return info, nil
}

func (s *fakeSurface) Exists(_ context.Context, h window.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.info(h)
	return ok
}

func (s *fakeSurface) Iconic(_ context.Context, h window.Handle) bool {
	return s.iconic(h)
}

func (s *fakeSurface) iconic(h window.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minimal[h]
}

func (s *fakeSurface) Minimize(_ context.Context, h window.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minimal[h] = true
	return nil
}

func (s *fakeSurface) PostMinimize(context.Context, window.Handle) error { return nil }

func (s *fakeSurface) Responsive(context.Context, window.Handle, time.Duration) bool { return true }
