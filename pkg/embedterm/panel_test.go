package embedterm

import (
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/embedterm/config"
	"github.com/grovetools/embedterm/errors"
	"github.com/grovetools/embedterm/pkg/cwdsync"
	"github.com/grovetools/embedterm/pkg/intercept"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ms = time.Millisecond

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestStartupReachesReady(t *testing.T) {
	h := newHarness(t)

	h.panel.OnContainerMapped()
	require.Len(t, h.spawner.handles, 1)
	assert.Equal(t, StateSpawning, h.panel.State())
	assert.DirExists(t, h.sc.Dir)

	h.sched.Advance(600 * ms)
	assert.Equal(t, StateReady, h.panel.State())
	assert.Equal(t, 1, h.runner.Count("bell-action", "none"))
	assert.Equal(t, 1, h.runner.Count("list-clients"))

	h.sched.Advance(200 * ms)
	assert.Equal(t, childID, h.spawner.handles[0].NativeWindow)
	win, ok := h.bridge.Window(childID)
	require.True(t, ok)
	assert.Equal(t, 800, win.Width)
	assert.Equal(t, 480, win.Height)

	st := h.panel.Status()
	assert.Equal(t, 4000, st.Pid)
	assert.Equal(t, childID, st.Window)
}

func TestSpawnWaitsForMappedContainer(t *testing.T) {
	h := newHarness(t)
	h.container.setMapped(false)

	h.panel.OnContainerMapped()
	h.sched.Advance(500 * ms)
	assert.Empty(t, h.spawner.dirs)

	h.container.setMapped(true)
	h.sched.Advance(50 * ms)
	assert.Len(t, h.spawner.dirs, 1)
}

func TestMissingDependencies(t *testing.T) {
	tests := []struct {
		name    string
		present map[string]bool
		want    []string
	}{
		{"both missing", map[string]bool{}, []string{"xterm", "tmux"}},
		{"multiplexer missing", map[string]bool{"xterm": true}, []string{"tmux"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, withLookPath(func(name string) (string, error) {
				if tt.present[name] {
					return "/usr/bin/" + name, nil
				}
				return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
			}))

			h.panel.OnContainerMapped()
			h.panel.OnContainerMapped()
			h.sched.Advance(5 * time.Second)

			assert.Equal(t, [][]string{tt.want}, h.host.missing)
			assert.Empty(t, h.spawner.dirs)
			assert.Empty(t, h.runner.Calls())
			assert.True(t, h.panel.Status().Inert)
		})
	}
}

func TestPendingCwdAppliedOnReady(t *testing.T) {
	h := newHarness(t)

	h.panel.SetLogicalCwd("/a", cwdsync.OriginHost)
	h.panel.SetLogicalCwd("/srv/b b", cwdsync.OriginHost)
	assert.Empty(t, h.runner.Calls())

	h.panel.OnContainerMapped()
	assert.Equal(t, []string{"/srv/b b"}, h.spawner.dirs)

	h.sched.Advance(600 * ms)
	assert.Equal(t, 1, h.runner.Count("-l"))
	assert.Equal(t, 1, h.runner.Count("-l", "cd -- '/srv/b b'"))

	h.sched.Advance(2 * time.Second)
	assert.Equal(t, 1, h.runner.Count("-l"))
}

func TestSessionCwdReportedWithoutEcho(t *testing.T) {
	h := newHarness(t)
	h.startReady(t)

	h.sched.Advance(200 * ms)
	require.Equal(t, []cwdEvent{{"/home/dev", cwdsync.OriginSession}}, h.host.cwds)

	// The host adopts the change and reports it back.
	h.panel.SetLogicalCwd("/home/dev", cwdsync.OriginSession)
	h.sched.Advance(800 * ms)
	assert.Equal(t, 0, h.runner.Count("-l"))
	assert.Len(t, h.host.cwds, 1)

	h.panel.SetLogicalCwd("/srv/next", cwdsync.OriginHost)
	assert.Equal(t, 1, h.runner.Count("-l", "cd -- /srv/next"))
	assert.Equal(t, "/srv/next", h.panel.Status().Cwd)
}

func TestRespawnAfterProcessDeath(t *testing.T) {
	h := newHarness(t)
	h.startReady(t)
	h.sched.Advance(1400 * ms)

	h.spawner.kill(0)
	h.sched.Advance(800 * ms)

	require.Len(t, h.spawner.handles, 2)
	assert.Equal(t, 1, h.runner.Count("kill-server"))
	assert.Equal(t, h.spawner.handles[:1], h.spawner.terminated)
	assert.True(t, h.spawner.handles[1].Started)
	assert.True(t, h.spawner.handles[1].Alive())
	assert.Equal(t, StateRespawning, h.panel.State())

	h.sched.Advance(600 * ms)
	assert.Equal(t, StateReady, h.panel.State())
	assert.Equal(t, 1, h.panel.Status().Respawns)
	assert.Empty(t, h.host.errs)
}

func TestRespawnCooldown(t *testing.T) {
	h := newHarness(t)
	h.startReady(t)

	h.spawner.kill(0)
	h.sched.Advance(200 * ms)
	require.Len(t, h.spawner.handles, 2)

	// Dies again inside the cooldown window.
	h.spawner.kill(1)
	h.sched.Advance(800 * ms)
	assert.Len(t, h.spawner.handles, 2)
	assert.Equal(t, StateDegraded, h.panel.State())

	h.sched.Advance(800 * ms)
	assert.Len(t, h.spawner.handles, 3)
	assert.Equal(t, 2, h.runner.Count("kill-server"))
}

func TestDegradedNoticeAfterRepeatedFailures(t *testing.T) {
	h := newHarness(t)
	h.spawner.dieAtOnce = true

	h.panel.OnContainerMapped()
	h.sched.Advance(10 * time.Second)

	assert.Len(t, h.spawner.handles, 7)
	require.Len(t, h.host.errs, 1)
	assert.True(t, errors.Is(h.host.errs[0], errors.ErrCodeProcessDied))

	h.spawner.dieAtOnce = false
	h.sched.Advance(2 * time.Second)
	assert.Equal(t, StateReady, h.panel.State())
	assert.Equal(t, 7, h.panel.Status().Respawns)
	assert.Len(t, h.host.errs, 1)
}

func TestSessionOnlyRecreation(t *testing.T) {
	h := newHarness(t)
	h.startReady(t)
	h.panel.SetLogicalCwd("/proj", cwdsync.OriginHost)
	require.Equal(t, 1, h.runner.Count("-l", "cd -- /proj"))

	h.tmux.setAlive(false)
	h.sched.Advance(200 * ms)

	assert.Equal(t, 1, h.runner.Count("new-session", "-d", "-s", "work"))
	assert.Len(t, h.spawner.handles, 1, "emulator is kept")
	assert.Equal(t, 0, h.runner.Count("kill-server"))
	assert.Equal(t, 2, h.runner.Count("-l", "cd -- /proj"))
	assert.Equal(t, StateReady, h.panel.State())
}

func TestSessionUnavailableAfterRepeatedRecreateFailures(t *testing.T) {
	h := newHarness(t)
	h.startReady(t)
	h.tmux.newSessionErr = fmt.Errorf("server exited unexpectedly")
	h.tmux.setAlive(false)

	// polls at 800ms intervals, one attempt per 1s cooldown: 0.8s, 2.4s, 4.0s
	h.sched.Advance(2400 * ms)
	assert.Equal(t, 2, h.runner.Count("new-session", "-d"))
	assert.Empty(t, h.host.errs)

	h.sched.Advance(1600 * ms)
	assert.Equal(t, 3, h.runner.Count("new-session", "-d"))
	require.Len(t, h.host.errs, 1)
	assert.True(t, errors.Is(h.host.errs[0], errors.ErrCodeSessionUnavailable))

	h.sched.Advance(5 * time.Second)
	assert.Len(t, h.host.errs, 1)
}

func TestResizeBurstRecreatesOncePerCooldown(t *testing.T) {
	h := newHarness(t)
	h.startReady(t)
	h.tmux.newSessionErr = fmt.Errorf("server exited unexpectedly")
	h.tmux.setAlive(false)

	before := h.runner.Count("has-session")
	for i := 0; i < 20; i++ {
		h.panel.OnContainerResized(800+i, 480)
	}
	assert.Equal(t, 1, h.runner.Count("new-session", "-d"))
	assert.Equal(t, before+1, h.runner.Count("has-session"))
	assert.Empty(t, h.host.errs)
	assert.Len(t, h.spawner.handles, 1)

	h.sched.Advance(time.Second)
	for i := 0; i < 20; i++ {
		h.panel.OnContainerResized(900, 500+i)
	}
	assert.Equal(t, 2, h.runner.Count("new-session", "-d"))
	assert.Empty(t, h.host.errs)
}

func TestKeyIntercept(t *testing.T) {
	h := newHarness(t)

	h.panel.OnFocusGained()
	assert.Equal(t, intercept.Forward, h.panel.HandleKey("ctrl+d"))
	assert.Equal(t, 0, h.runner.Count("C-d"), "dropped before the session exists")

	h.startReady(t)
	h.panel.OnFocusLost()
	assert.Equal(t, intercept.Passthrough, h.panel.HandleKey("ctrl+d"))
	assert.False(t, h.panel.Status().Intercept)

	h.panel.OnClick()
	assert.Equal(t, 1, h.container.focused)
	assert.True(t, h.panel.Status().Intercept)
	assert.Equal(t, intercept.Forward, h.panel.HandleKey("ctrl+d"))
	assert.Equal(t, intercept.Passthrough, h.panel.HandleKey("ctrl+s"))
	assert.Equal(t, 1, h.runner.Count("send-keys", "-t", "work", "C-d"))

	assert.Nil(t, h.panel.Filter()(nil, tea.KeyMsg{Type: tea.KeyCtrlD}))
	assert.Equal(t, 2, h.runner.Count("send-keys", "-t", "work", "C-d"))
}

func TestGeometryReconciliation(t *testing.T) {
	h := newHarness(t)
	h.startReady(t)

	h.sched.Advance(600 * ms)
	assert.Equal(t, 1, h.runner.Count("refresh-client", "-t", "/dev/pts/7", "-C", "100,30"))

	h.sched.Advance(3600 * ms)
	assert.Equal(t, 1, h.runner.Count("refresh-client"))
	win, _ := h.bridge.Window(childID)
	assert.Equal(t, 1, win.Configures)

	h.panel.OnContainerResized(1000, 600)
	win, _ = h.bridge.Window(childID)
	assert.Equal(t, 1000, win.Width)
	assert.Equal(t, 600, win.Height)

	h.sched.Advance(1200 * ms)
	assert.Equal(t, 1, h.runner.Count("-C", "125,38"))

	h.sched.Advance(2400 * ms)
	assert.Equal(t, 2, h.runner.Count("refresh-client"))
	assert.Equal(t, 125, h.panel.Status().Cols)
}

func TestShutdown(t *testing.T) {
	h := newHarness(t)
	h.startReady(t)
	h.sched.Advance(200 * ms)

	h.panel.Shutdown()
	assert.Equal(t, StateShutdown, h.panel.State())
	assert.Equal(t, h.spawner.handles[:1], h.spawner.terminated)
	assert.Equal(t, 1, h.runner.Count("kill-server"))
	assert.NoDirExists(t, h.sc.Dir)
	assert.True(t, h.bridge.Closed())

	h.runner.Reset()
	h.sched.Advance(10 * time.Second)
	h.panel.SetLogicalCwd("/x", cwdsync.OriginHost)
	h.panel.OnContainerResized(300, 200)
	h.panel.OnContainerMapped()
	assert.Empty(t, h.runner.Calls())
	assert.Len(t, h.spawner.handles, 1)

	h.panel.Shutdown()
	assert.Empty(t, h.runner.Calls())
}

func TestSpawnFailureIsInertUntilRetry(t *testing.T) {
	h := newHarness(t)
	h.spawner.err = errors.SpawnFailed("xterm", fmt.Errorf("fork/exec: no such file or directory"))

	h.panel.OnContainerMapped()
	require.Len(t, h.host.errs, 1)
	assert.True(t, errors.Is(h.host.errs[0], errors.ErrCodeSpawnFailed))
	assert.Equal(t, StateUnstarted, h.panel.State())
	assert.True(t, h.panel.Status().Inert)

	h.sched.Advance(5 * time.Second)
	h.panel.OnContainerMapped()
	assert.Len(t, h.spawner.dirs, 1)

	h.spawner.err = nil
	h.panel.Retry()
	assert.Len(t, h.spawner.handles, 1)
	h.sched.Advance(600 * ms)
	assert.Equal(t, StateReady, h.panel.State())
}

func TestApplyConfig(t *testing.T) {
	h := newHarness(t)
	h.startReady(t)

	cfg := config.Default()
	cfg.Intercept.Chords = []string{"ctrl+z"}
	cfg.Emulator.Font = "Iosevka"
	h.panel.ApplyConfig(cfg)

	h.panel.OnFocusGained()
	assert.Equal(t, intercept.Passthrough, h.panel.HandleKey("ctrl+d"))
	assert.Equal(t, intercept.Forward, h.panel.HandleKey("ctrl+z"))
	assert.Equal(t, 1, h.runner.Count("send-keys", "-t", "work", "C-z"))
	require.Len(t, h.spawner.configured, 1)
	assert.Equal(t, "Iosevka", h.spawner.configured[0].Font)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "respawning", StateRespawning.String())
	assert.Equal(t, "unknown", State(42).String())
}
