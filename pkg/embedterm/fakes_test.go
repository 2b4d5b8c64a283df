package embedterm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grovetools/embedterm/command/mocks"
	"github.com/grovetools/embedterm/config"
	"github.com/grovetools/embedterm/pkg/cwdsync"
	"github.com/grovetools/embedterm/pkg/emulator"
	"github.com/grovetools/embedterm/pkg/session"
	"github.com/grovetools/embedterm/pkg/xwin"
	"github.com/grovetools/embedterm/tui/theme"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const (
	containerID = uint32(0x3a00005)
	childID     = uint32(0x4c00022)
)

// manualScheduler runs posted callbacks inline and timers only when advanced.
type manualScheduler struct {
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Time
	fn      func()
	fired   bool
	stopped bool
}

func (t *manualTimer) Stop() bool {
	pending := !t.fired && !t.stopped
	t.stopped = true
	return pending
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (s *manualScheduler) Post(fn func()) bool {
	fn()
	return true
}

func (s *manualScheduler) After(d time.Duration, fn func()) Timer {
	t := &manualTimer{at: s.now.Add(d), fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) Now() time.Time {
	return s.now
}

// Advance fires due timers in time order, including ones scheduled meanwhile.
func (s *manualScheduler) Advance(d time.Duration) {
	end := s.now.Add(d)
	for {
		var next *manualTimer
		for _, t := range s.timers {
			if t.fired || t.stopped || t.at.After(end) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			break
		}
		if next.at.After(s.now) {
			s.now = next.at
		}
		next.fired = true
		next.fn()
	}
	s.now = end
}

// fakeTmux answers the control commands a real server would.
type fakeTmux struct {
	mu            sync.Mutex
	alive         bool
	cols, rows    int
	cwd           string
	newSessionErr error
}

func (f *fakeTmux) run(_ context.Context, _ string, args ...string) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(args) < 3 {
		return false, "", nil
	}
	switch args[2] {
	case "has-session":
		if f.alive {
			return true, "", nil
		}
		return true, "", fmt.Errorf("exit status 1")
	case "list-clients":
		if !f.alive {
			return true, "", fmt.Errorf("no server running")
		}
		return true, "/dev/pts/7\n", nil
	case "display-message":
		if !f.alive {
			return true, "", fmt.Errorf("no server running")
		}
		switch args[len(args)-1] {
		case "#{pane_current_path}":
			return true, f.cwd + "\n", nil
		case "#{pane_width} #{pane_height}", "#{client_width} #{client_height}":
			return true, fmt.Sprintf("%d %d\n", f.cols, f.rows), nil
		}
	case "refresh-client":
		parts := strings.Split(args[len(args)-1], ",")
		f.cols, _ = strconv.Atoi(parts[0])
		f.rows, _ = strconv.Atoi(parts[1])
		return true, "", nil
	case "new-session":
		if f.newSessionErr != nil {
			return true, "", f.newSessionErr
		}
		f.alive = true
		return true, "", nil
	case "kill-server":
		f.alive = false
		return true, "", nil
	}
	return false, "", nil
}

func (f *fakeTmux) setAlive(alive bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive = alive
}

type fakeSpawner struct {
	tmux *fakeTmux
	err  error
	// dieAtOnce makes every spawned process exit immediately.
	dieAtOnce bool

	dirs       []string
	handles    []*emulator.Handle
	dones      []chan struct{}
	terminated []*emulator.Handle
	configured []config.EmulatorConfig
}

func (s *fakeSpawner) Spawn(windowID uint32, dir string) (*emulator.Handle, error) {
	s.dirs = append(s.dirs, dir)
	if s.err != nil {
		return nil, s.err
	}
	done := make(chan struct{})
	n := len(s.handles)
	h := emulator.NewHandle(4000+n, 4000+n, done)
	s.handles = append(s.handles, h)
	s.dones = append(s.dones, done)
	if s.dieAtOnce {
		close(done)
	} else if s.tmux != nil {
		s.tmux.setAlive(true)
	}
	return h, nil
}

func (s *fakeSpawner) Terminate(h *emulator.Handle, grace time.Duration) {
	s.terminated = append(s.terminated, h)
	for i, other := range s.handles {
		if other == h && h.Alive() {
			close(s.dones[i])
		}
	}
}

func (s *fakeSpawner) Configure(cfg config.EmulatorConfig, _ theme.EmulatorColors) {
	s.configured = append(s.configured, cfg)
}

// kill makes the i-th spawned process exit.
func (s *fakeSpawner) kill(i int) {
	if s.handles[i].Alive() {
		close(s.dones[i])
	}
}

type fakeContainer struct {
	mu      sync.Mutex
	id      uint32
	mapped  bool
	w, h    int
	focused int
}

func (c *fakeContainer) WindowID() (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id, c.id != 0
}

func (c *fakeContainer) Mapped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mapped
}

func (c *fakeContainer) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w, c.h
}

func (c *fakeContainer) RequestFocus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.focused++
}

func (c *fakeContainer) setMapped(mapped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mapped = mapped
}

type cwdEvent struct {
	path   string
	origin cwdsync.Origin
}

type fakeHost struct {
	cwds    []cwdEvent
	missing [][]string
	errs    []error
}

func (h *fakeHost) NotifyCwdChanged(path string, origin cwdsync.Origin) {
	h.cwds = append(h.cwds, cwdEvent{path, origin})
}

func (h *fakeHost) NotifyMissingDependency(names []string) {
	h.missing = append(h.missing, names)
}

func (h *fakeHost) NotifyError(err error) {
	h.errs = append(h.errs, err)
}

type harness struct {
	panel     *Panel
	sched     *manualScheduler
	runner    *mocks.Runner
	tmux      *fakeTmux
	spawner   *fakeSpawner
	bridge    *xwin.Fake
	container *fakeContainer
	host      *fakeHost
	sc        *session.Context
	cfg       *config.Config
}

type harnessOption func(*harness, *Options)

func withLookPath(fn func(string) (string, error)) harnessOption {
	return func(_ *harness, o *Options) { o.LookPath = fn }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	entry := logrus.NewEntry(logger)

	sc, err := session.NewContext(t.TempDir(), "work", entry)
	require.NoError(t, err)

	h := &harness{
		sched:     newManualScheduler(),
		runner:    mocks.NewRunner(),
		tmux:      &fakeTmux{cols: 80, rows: 24, cwd: "/home/dev"},
		bridge:    xwin.NewFake("xterm"),
		container: &fakeContainer{id: containerID, mapped: true, w: 800, h: 480},
		host:      &fakeHost{},
		sc:        sc,
		cfg:       config.Default(),
	}
	h.runner.RunFunc = h.tmux.run
	h.spawner = &fakeSpawner{tmux: h.tmux}
	h.bridge.AddWindow(0, containerID, xwin.FakeWindow{Width: 800, Height: 480, Mapped: true})
	h.bridge.AddWindow(containerID, childID, xwin.FakeWindow{Class: "xterm XTerm", Mapped: true})

	o := Options{
		Config:    h.cfg,
		Session:   sc,
		Bridge:    h.bridge,
		Container: h.container,
		Host:      h.host,
		Runner:    h.runner,
		Spawner:   h.spawner,
		Scheduler: h.sched,
		Now:       h.sched.Now,
		LookPath:  func(name string) (string, error) { return "/usr/bin/" + name, nil },
		Logger:    entry,
	}
	for _, opt := range opts {
		opt(h, &o)
	}

	h.panel, err = New(o)
	require.NoError(t, err)
	return h
}

// startReady maps the container and advances until the session is ready.
func (h *harness) startReady(t *testing.T) {
	t.Helper()
	h.panel.OnContainerMapped()
	h.sched.Advance(h.cfg.Timing.ReadyDelay.D())
	require.Equal(t, StateReady, h.panel.State())
}
