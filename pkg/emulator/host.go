package emulator

import (
	"fmt"
	"strconv"
	"syscall"
	"time"

	"github.com/grovetools/embedterm/command"
	"github.com/grovetools/embedterm/config"
	"github.com/grovetools/embedterm/errors"
	"github.com/grovetools/embedterm/pkg/process"
	"github.com/grovetools/embedterm/pkg/tmux"
	"github.com/grovetools/embedterm/tui/theme"
	"github.com/sirupsen/logrus"
)

const groupPollInterval = 20 * time.Millisecond

// Host launches the terminal emulator inside a container window, running an
// attached tmux session as its child command.
type Host struct {
	builder *command.SafeBuilder
	cfg     config.EmulatorConfig
	colors  theme.EmulatorColors
	client  *tmux.Client
	session string
	logger  *logrus.Entry
}

// NewHost creates an emulator host. client provides the tmux binary and socket
// the emulator's child attaches to.
func NewHost(builder *command.SafeBuilder, cfg config.EmulatorConfig, colors theme.EmulatorColors, client *tmux.Client, session string, logger *logrus.Entry) *Host {
	if builder == nil {
		builder = command.NewSafeBuilder()
	}
	return &Host{
		builder: builder,
		cfg:     cfg,
		colors:  colors,
		client:  client,
		session: session,
		logger:  logger,
	}
}

// Configure replaces the emulator settings used by the next Spawn.
func (h *Host) Configure(cfg config.EmulatorConfig, colors theme.EmulatorColors) {
	h.cfg = cfg
	h.colors = colors
}

// Args returns the emulator argv (without the binary) for embedding into windowID.
func (h *Host) Args(windowID uint32) []string {
	args := []string{"-into", strconv.FormatUint(uint64(windowID), 10)}
	if h.cfg.Font != "" {
		args = append(args, "-fa", h.cfg.Font)
	}
	if h.cfg.FontSize > 0 {
		args = append(args, "-fs", strconv.Itoa(h.cfg.FontSize))
	}
	if h.colors.Background != "" {
		args = append(args, "-bg", h.colors.Background)
	}
	if h.colors.Foreground != "" {
		args = append(args, "-fg", h.colors.Foreground)
	}

	args = append(args, "+sb", "-bc")
	cursor := h.colors.Cursor
	if cursor == "" {
		cursor = h.colors.Foreground
	}
	if cursor != "" {
		args = append(args, "-cr", cursor)
	}
	args = append(args, "-vb", "-xrm", "XTerm.vt100.bellIsUrgent: false")
	args = append(args, h.cfg.ExtraArgs...)

	args = append(args, "-e", h.client.Binary())
	return append(args, h.client.NewSessionArgs(h.session)...)
}

// Spawn starts the emulator as the leader of a new process group. dir, when set,
// becomes the working directory the new session starts in.
func (h *Host) Spawn(windowID uint32, dir string) (*Handle, error) {
	if windowID == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "container has no window id yet")
	}
	if err := h.builder.Validate("windowID", strconv.FormatUint(uint64(windowID), 10)); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid container window id")
	}

	cmd, err := h.builder.Detached(h.cfg.Binary, h.Args(windowID)...)
	if err != nil {
		return nil, errors.SpawnFailed(h.cfg.Binary, err)
	}
	cmd.SysProcAttr = process.NewGroupAttr()
	cmd.Dir = dir

	if err := cmd.Start(); err != nil {
		return nil, errors.SpawnFailed(h.cfg.Binary, err)
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	pid := cmd.Process.Pid
	h.logger.WithFields(logrus.Fields{
		"pid":       pid,
		"container": fmt.Sprintf("0x%x", windowID),
	}).Info("Spawned terminal emulator")

	// setsid makes the child its own group leader
	return NewHandle(pid, pid, done), nil
}

// Terminate signals the handle's process group with SIGTERM, waits up to grace
// for every member to exit, then escalates to SIGKILL. The group is signalled
// even when the leader has already exited, since its children may outlive it.
// It never returns an error; failures are logged.
func (h *Host) Terminate(handle *Handle, grace time.Duration) {
	if handle == nil || handle.Pgid <= 0 {
		return
	}

	if err := process.SignalGroup(handle.Pgid, syscall.SIGTERM); err != nil {
		h.logger.WithError(err).Debug("SIGTERM to emulator group failed")
	}
	if waitGroupGone(handle, grace) {
		return
	}

	h.logger.WithField("pgid", handle.Pgid).Warn("Emulator group ignored SIGTERM, killing it")
	if err := process.SignalGroup(handle.Pgid, syscall.SIGKILL); err != nil {
		h.logger.WithError(err).Debug("SIGKILL to emulator group failed")
	}
	if !waitGroupGone(handle, grace) {
		h.logger.WithField("pgid", handle.Pgid).Debug("Emulator group still present after SIGKILL")
	}
}

// waitGroupGone polls until the leader is reaped and no group member is left.
func waitGroupGone(handle *Handle, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !handle.Alive() && !process.GroupAlive(handle.Pgid) {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		// a reaped leader leaves Done closed; only wait on it while it runs
		var done <-chan struct{}
		if handle.Alive() {
			done = handle.Done()
		}
		select {
		case <-done:
		case <-time.After(groupPollInterval):
		}
	}
}
