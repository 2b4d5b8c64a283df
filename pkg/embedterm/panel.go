// Package embedterm supervises a terminal emulator embedded in a host window:
// the emulator process, its private tmux session, window geometry, the working
// directory link, and key interception.
package embedterm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/embedterm/command"
	"github.com/grovetools/embedterm/config"
	"github.com/grovetools/embedterm/errors"
	"github.com/grovetools/embedterm/pkg/cwdsync"
	"github.com/grovetools/embedterm/pkg/emulator"
	"github.com/grovetools/embedterm/pkg/geometry"
	"github.com/grovetools/embedterm/pkg/intercept"
	"github.com/grovetools/embedterm/pkg/session"
	"github.com/grovetools/embedterm/pkg/tmux"
	"github.com/grovetools/embedterm/pkg/xwin"
	"github.com/grovetools/embedterm/tui/theme"
	"github.com/sirupsen/logrus"
)

// timer slots; scheduling a slot replaces the pending callback in it
const (
	slotSpawn    = "spawn"
	slotReady    = "ready"
	slotPoll     = "poll"
	slotSize     = "size"
	slotDiscover = "discover"
)

// Panel is the supervisor for one embedded terminal. Its exported methods may be
// called from any goroutine; all state changes run on the scheduler.
type Panel struct {
	cfg       *config.Config
	sc        *session.Context
	client    *tmux.Client
	sup       *session.Supervisor
	spawner   Spawner
	tracker   *xwin.Tracker
	recon     *geometry.Reconciler
	cwd       *cwdsync.Bridge
	gate      *intercept.Gateway
	host      Host
	container Container
	sched     Scheduler
	ownLoop   *Loop
	now       func() time.Time
	lookPath  command.LookPath
	logger    *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc

	// loop-owned
	state         State
	handle        *emulator.Handle
	gen           int
	inert         bool
	timers        map[string]Timer
	lastRespawn   time.Time
	respawns      int
	streak        int
	degradedShown bool
	recreating    bool
	recreateFails int
	unavailShown  bool

	stateVal  atomic.Int32
	statusMu  sync.Mutex
	status    Status
	closeOnce sync.Once
}

// New wires a panel. Nothing is spawned until OnContainerMapped.
func New(opts Options) (*Panel, error) {
	if opts.Config == nil || opts.Session == nil || opts.Bridge == nil || opts.Container == nil || opts.Host == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "panel requires config, session, bridge, container and host")
	}

	logger := opts.Logger
	if logger == nil {
		logger = opts.Session.Logger
	}
	logger = logger.WithField("session", opts.Session.Name)

	runner := opts.Runner
	if runner == nil {
		runner = command.NewSafeBuilder()
	}
	cfg := opts.Config
	client := tmux.NewClient(runner, cfg.Multiplexer.Binary, opts.Session.SocketPath)

	spawner := opts.Spawner
	if spawner == nil {
		spawner = emulator.NewHost(nil, cfg.Emulator, theme.ForConfig(cfg.Theme), client, opts.Session.Name, logger)
	}

	p := &Panel{
		cfg:       cfg,
		sc:        opts.Session,
		client:    client,
		sup:       session.NewSupervisor(opts.Session, client),
		spawner:   spawner,
		tracker:   xwin.NewTracker(opts.Bridge, logger),
		host:      opts.Host,
		container: opts.Container,
		sched:     opts.Scheduler,
		now:       opts.Now,
		lookPath:  opts.LookPath,
		logger:    logger,
		timers:    make(map[string]Timer),
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())

	if p.sched == nil {
		p.ownLoop = NewLoop()
		p.sched = p.ownLoop
		go p.ownLoop.Run(p.ctx)
	}

	p.recon = geometry.NewReconciler(client, opts.Session.Name, p.sup.ClientTTY, p.tracker, cfg.Geometry, logger)
	p.cwd = cwdsync.New(client, opts.Session.Name, p.onSessionCwd, logger)
	p.gate = intercept.NewGateway(cfg.Intercept.Chords, func(tmuxKey string) {
		p.sched.Post(func() { p.sendKey(tmuxKey) })
	})
	p.publish()
	return p, nil
}

// State returns the current lifecycle state.
func (p *Panel) State() State {
	return State(p.stateVal.Load())
}

// Status returns the last published snapshot.
func (p *Panel) Status() Status {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	return p.status
}

// Filter returns the root input interceptor for tea.WithFilter.
func (p *Panel) Filter() func(tea.Model, tea.Msg) tea.Msg {
	return p.gate.Filter
}

// OnContainerMapped starts the panel once the container is visible.
func (p *Panel) OnContainerMapped() {
	p.sched.Post(p.start)
}

// Retry leaves the inert state entered after a missing dependency or a spawn
// failure and starts over.
func (p *Panel) Retry() {
	p.sched.Post(func() {
		if p.state == StateShutdown || !p.inert {
			return
		}
		p.inert = false
		p.setState(StateUnstarted)
		p.start()
	})
}

// OnContainerResized pushes the new container size onto the emulator window.
func (p *Panel) OnContainerResized(width, height int) {
	p.sched.Post(func() {
		if p.state == StateShutdown {
			return
		}
		if err := p.recon.OnContainerResize(width, height); err != nil {
			p.logger.WithError(err).Debug("Direct resize failed")
		}
		p.ensureAlive()
	})
}

// OnFocusGained starts intercepting chords.
func (p *Panel) OnFocusGained() {
	p.gate.Activate()
	p.publishIntercept()
}

// OnFocusLost stops intercepting chords.
func (p *Panel) OnFocusLost() {
	p.gate.Deactivate()
	p.publishIntercept()
}

// OnClick activates interception and asks the host to focus the container.
func (p *Panel) OnClick() {
	p.gate.Activate()
	p.publishIntercept()
	p.container.RequestFocus()
}

// HandleKey routes one chord. Forwarded chords are sent to the session
// asynchronously and must not be handled by the host.
func (p *Panel) HandleKey(chord string) intercept.Decision {
	return p.gate.Handle(chord)
}

// SetLogicalCwd tells the panel the host's directory changed. Host-originated
// changes move the session; session-originated ones are only recorded.
func (p *Panel) SetLogicalCwd(path string, origin cwdsync.Origin) {
	p.sched.Post(func() {
		if p.state == StateShutdown {
			return
		}
		if origin == cwdsync.OriginSession {
			p.cwd.NoteHostCwd(path)
			return
		}
		if err := p.cwd.RequestHostDirectoryChange(p.ctx, path); err != nil {
			p.logger.WithError(err).Debug("Directory change not applied")
		}
		p.publish()
	})
}

// ApplyConfig switches to cfg. Timing, geometry, respawn and chord settings take
// effect immediately; emulator and theme settings apply from the next spawn.
func (p *Panel) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	p.sched.Post(func() {
		p.cfg = cfg
		p.recon.Tune(cfg.Geometry)
		p.gate.SetChords(cfg.Intercept.Chords)
		if c, ok := p.spawner.(interface {
			Configure(config.EmulatorConfig, theme.EmulatorColors)
		}); ok {
			c.Configure(cfg.Emulator, theme.ForConfig(cfg.Theme))
		}
		p.logger.Debug("Applied configuration")
	})
}

// Shutdown tears everything down and blocks until done. Every step is best
// effort; Shutdown never fails and is safe to call twice.
func (p *Panel) Shutdown() {
	done := make(chan struct{})
	if !p.sched.Post(func() {
		p.shutdown()
		close(done)
	}) {
		p.shutdown()
		return
	}
	<-done
}

func (p *Panel) start() {
	if p.state != StateUnstarted || p.inert {
		return
	}

	missing := command.Missing(p.lookPath, p.cfg.Emulator.Binary, p.cfg.Multiplexer.Binary)
	if len(missing) > 0 {
		p.inert = true
		p.logger.WithField("missing", missing).Warn("Required programs not found, terminal disabled")
		p.host.NotifyMissingDependency(missing)
		p.publish()
		return
	}

	if err := p.sup.EnsureSocketNamespace(); err != nil {
		p.fail(err)
		return
	}

	p.setState(StateSpawning)
	p.trySpawn(p.gen)
}

// trySpawn starts the emulator once the container has a mapped window, polling
// on a short timer until it does.
func (p *Panel) trySpawn(gen int) {
	if gen != p.gen || !p.state.running() {
		return
	}

	wid, ok := p.container.WindowID()
	if !ok || wid == 0 || !p.container.Mapped() {
		p.schedule(slotSpawn, p.cfg.Timing.SpawnRetry.D(), gen, func() { p.trySpawn(gen) })
		return
	}

	p.tracker.SetContainer(wid)
	p.sup.MarkNotReady()
	p.cwd.MarkNotReady()
	p.recon.Reset()

	handle, err := p.spawner.Spawn(wid, p.cwd.HostCwd())
	if err != nil {
		p.fail(err)
		return
	}
	p.handle = handle
	p.publish()

	p.schedule(slotReady, p.cfg.Timing.ReadyDelay.D(), gen, func() { p.checkReady(gen) })
	p.schedule(slotPoll, p.cfg.Timing.CwdPoll.D(), gen, func() { p.pollTick(gen) })
	p.schedule(slotSize, p.cfg.Timing.SizeReconcile.D(), gen, func() { p.sizeTick(gen) })
}

func (p *Panel) checkReady(gen int) {
	if gen != p.gen || !p.state.running() || p.sup.Ready() {
		return
	}
	if !p.sup.HasSession(p.ctx) {
		p.logger.Debug("Session not up yet")
		return
	}
	p.becomeReady(gen)
}

func (p *Panel) becomeReady(gen int) {
	if !p.sup.Ready() {
		p.sup.Prime(p.ctx)
	}
	p.setState(StateReady)
	p.streak = 0
	p.degradedShown = false
	p.recreating = false
	p.recreateFails = 0
	p.unavailShown = false
	p.logger.Info("Terminal session ready")

	if err := p.cwd.MarkReady(p.ctx); err != nil {
		p.logger.WithError(err).Debug("Failed to move session to host directory")
	}
	p.schedule(slotDiscover, p.cfg.Timing.DiscoverDelay.D(), gen, func() { p.discover(gen) })
	p.publish()
}

func (p *Panel) discover(gen int) {
	if gen != p.gen || !p.state.running() {
		return
	}
	child, err := p.tracker.Discover()
	if err != nil {
		p.logger.WithError(err).Debug("Emulator window not found yet")
		return
	}
	if p.handle != nil {
		p.handle.NativeWindow = child
	}
	if w, h := p.containerSize(); w > 0 && h > 0 {
		if err := p.recon.OnContainerResize(w, h); err != nil {
			p.logger.WithError(err).Debug("Initial resize failed")
		}
	}
	p.publish()
}

func (p *Panel) pollTick(gen int) {
	if gen != p.gen || !p.state.running() {
		return
	}
	p.ensureAlive()
	if gen != p.gen || !p.state.running() {
		return
	}

	if !p.sup.Ready() {
		p.checkReady(gen)
	} else if err := p.cwd.Poll(p.ctx); err != nil {
		p.logger.WithError(err).Debug("Directory poll failed")
	}
	p.schedule(slotPoll, p.cfg.Timing.CwdPoll.D(), gen, func() { p.pollTick(gen) })
}

func (p *Panel) sizeTick(gen int) {
	if gen != p.gen || !p.state.running() {
		return
	}
	if p.sup.Ready() && p.container.Mapped() {
		if c := p.recon.Container(); c.Width <= 0 || c.Height <= 0 {
			if w, h := p.containerSize(); w > 0 && h > 0 {
				_ = p.recon.OnContainerResize(w, h)
			}
		}
		if _, err := p.recon.Reconcile(p.ctx); err != nil {
			p.logger.WithError(err).Debug("Size reconcile failed")
		}
		if child, ok := p.tracker.Child(); ok && p.handle != nil {
			p.handle.NativeWindow = child
		}
		p.publish()
	}
	p.schedule(slotSize, p.cfg.Timing.SizeReconcile.D(), gen, func() { p.sizeTick(gen) })
}

// ensureAlive respawns a dead emulator or recreates a vanished session.
func (p *Panel) ensureAlive() {
	if !p.state.running() || p.handle == nil {
		return
	}
	if !p.handle.Alive() {
		p.onProcessDied()
		return
	}
	if !p.sup.Ready() && !p.recreating {
		return
	}
	now := p.now()
	if p.recreating && p.coolingDown(now) {
		return
	}
	if !p.sup.HasSession(p.ctx) {
		p.recreateSession(now)
	}
}

// coolingDown reports whether the last respawn or recreation attempt was too
// recent for another one.
func (p *Panel) coolingDown(now time.Time) bool {
	return !p.lastRespawn.IsZero() && now.Sub(p.lastRespawn) < p.cfg.Respawn.Cooldown.D()
}

func (p *Panel) onProcessDied() {
	if p.state == StateReady {
		p.setState(StateDegraded)
	}
	now := p.now()
	if p.coolingDown(now) {
		p.logger.Debug("Emulator dead, waiting for respawn cooldown")
		return
	}
	p.respawnAll(now)
}

// respawnAll replaces the emulator and its session. The old process group is
// gone before the new one starts.
func (p *Panel) respawnAll(now time.Time) {
	dead := p.handle
	p.lastRespawn = now
	p.respawns++
	p.streak++
	p.gen++
	p.stopTimers()
	p.setState(StateRespawning)

	pid := 0
	if dead != nil {
		pid = dead.Pid
	}
	p.logger.WithFields(logrus.Fields{"pid": pid, "respawns": p.respawns}).Warn("Terminal emulator died, respawning")

	p.recreating = false
	p.cwd.MarkNotReady()
	p.sup.KillServer(p.ctx)
	if dead != nil {
		p.spawner.Terminate(dead, p.cfg.Respawn.GracePeriod.D())
	}
	p.handle = nil
	p.tracker.Forget()
	p.recon.Reset()

	if p.streak >= p.cfg.Respawn.DegradedAfter && !p.degradedShown {
		p.degradedShown = true
		p.host.NotifyError(errors.ProcessDied(pid, p.streak))
	}

	if err := p.sup.EnsureSocketNamespace(); err != nil {
		p.fail(err)
		return
	}
	p.trySpawn(p.gen)
}

// recreateSession is the cheap path when the emulator survived its session. It
// shares the respawn cooldown, so failures are counted once per cycle.
func (p *Panel) recreateSession(now time.Time) {
	if !p.recreating {
		p.logger.Info("Session vanished, recreating")
	}
	p.recreating = true
	p.cwd.MarkNotReady()
	p.sup.MarkNotReady()
	p.recon.Reset()

	if p.coolingDown(now) {
		p.logger.Debug("Session gone, waiting for respawn cooldown")
		return
	}
	p.lastRespawn = now

	if err := p.sup.CreateSession(p.ctx); err != nil {
		p.recreateFails++
		p.logger.WithError(err).WithField("attempts", p.recreateFails).Debug("Session recreation failed")
		if p.recreateFails >= p.cfg.Respawn.UnavailableAfter && !p.unavailShown {
			p.unavailShown = true
			p.host.NotifyError(err)
		}
		return
	}
	p.becomeReady(p.gen)
}

func (p *Panel) sendKey(tmuxKey string) {
	if p.state == StateShutdown || !p.sup.Ready() {
		p.logger.WithField("key", tmuxKey).Debug("Dropping key, session not ready")
		return
	}
	if err := p.client.SendKeys(p.ctx, p.sc.Name, tmuxKey); err != nil {
		p.logger.WithError(err).Debug("Failed to forward key")
	}
}

func (p *Panel) onSessionCwd(path string, origin cwdsync.Origin) {
	p.host.NotifyCwdChanged(path, origin)
	p.publish()
}

// fail parks the panel after a spawn failure until Retry.
func (p *Panel) fail(err error) {
	p.gen++
	p.stopTimers()
	p.inert = true
	p.setState(StateUnstarted)
	p.logger.WithError(err).Error("Terminal could not be started")
	p.host.NotifyError(err)
	p.publish()
}

func (p *Panel) shutdown() {
	if p.state == StateShutdown {
		return
	}
	p.gen++
	p.stopTimers()
	p.setState(StateShutdown)
	p.gate.Deactivate()

	if p.handle != nil {
		p.bestEffort("terminate emulator", func() error {
			p.spawner.Terminate(p.handle, p.cfg.Respawn.ShutdownGrace.D())
			return nil
		})
		p.handle = nil
	}
	p.bestEffort("destroy session", func() error {
		p.sup.DestroyAll(p.ctx)
		return nil
	})
	p.bestEffort("close display", p.tracker.Close)

	p.logger.Info("Terminal shut down")
	p.publish()

	p.closeOnce.Do(func() {
		p.cancel()
		if p.ownLoop != nil {
			p.ownLoop.Stop()
		}
	})
}

func (p *Panel) bestEffort(step string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithField("step", step).Debug(fmt.Sprintf("Cleanup panicked: %v", r))
		}
	}()
	if err := fn(); err != nil {
		p.logger.WithError(err).WithField("step", step).Debug("Cleanup step failed")
	}
}

func (p *Panel) schedule(slot string, d time.Duration, gen int, fn func()) {
	if t, ok := p.timers[slot]; ok {
		t.Stop()
	}
	p.timers[slot] = p.sched.After(d, func() {
		if gen != p.gen {
			return
		}
		fn()
	})
}

func (p *Panel) stopTimers() {
	for slot, t := range p.timers {
		t.Stop()
		delete(p.timers, slot)
	}
}

func (p *Panel) containerSize() (int, int) {
	if c := p.recon.Container(); c.Width > 0 && c.Height > 0 {
		return c.Width, c.Height
	}
	return p.container.Size()
}

func (p *Panel) setState(s State) {
	if s != p.state {
		p.logger.WithFields(logrus.Fields{"from": p.state, "to": s}).Debug("State change")
	}
	p.state = s
	p.stateVal.Store(int32(s))
}

func (p *Panel) publish() {
	st := Status{
		State:     p.state,
		Cwd:       p.cwd.HostCwd(),
		Respawns:  p.respawns,
		Intercept: p.gate.Active(),
		Inert:     p.inert,
	}
	if p.handle != nil {
		st.Pid = p.handle.Pid
		st.Window = p.handle.NativeWindow
	}
	if c := p.recon.Container(); c.Width > 0 && c.Height > 0 {
		g := p.recon.Estimator().Grid(c)
		st.Cols, st.Rows = g.Cols, g.Rows
	}

	p.statusMu.Lock()
	p.status = st
	p.statusMu.Unlock()
}

func (p *Panel) publishIntercept() {
	p.statusMu.Lock()
	p.status.Intercept = p.gate.Active()
	p.statusMu.Unlock()
}
