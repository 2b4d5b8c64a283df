package embedterm

import (
	"time"

	"github.com/grovetools/embedterm/command"
	"github.com/grovetools/embedterm/config"
	"github.com/grovetools/embedterm/pkg/cwdsync"
	"github.com/grovetools/embedterm/pkg/emulator"
	"github.com/grovetools/embedterm/pkg/session"
	"github.com/grovetools/embedterm/pkg/xwin"
	"github.com/sirupsen/logrus"
)

// Host receives notifications from the panel. Calls happen on the panel's loop.
type Host interface {
	// NotifyCwdChanged reports a directory change observed in the session.
	NotifyCwdChanged(path string, origin cwdsync.Origin)
	// NotifyMissingDependency is called once when required programs are absent.
	NotifyMissingDependency(names []string)
	// NotifyError reports spawn failures and persistent degradation.
	NotifyError(err error)
}

// Container is the host-owned region the emulator is embedded into.
type Container interface {
	// WindowID returns the native window id, false until the region is realized.
	WindowID() (uint32, bool)
	Mapped() bool
	Size() (width, height int)
	RequestFocus()
}

// Spawner starts and stops the emulator process. *emulator.Host implements it.
type Spawner interface {
	Spawn(windowID uint32, dir string) (*emulator.Handle, error)
	Terminate(handle *emulator.Handle, grace time.Duration)
}

// Options wires a Panel. Config, Session, Bridge, Container and Host are required.
type Options struct {
	Config    *config.Config
	Session   *session.Context
	Bridge    xwin.Bridge
	Container Container
	Host      Host

	// Runner executes tmux commands. Defaults to a command.SafeBuilder.
	Runner command.Runner
	// Spawner defaults to an emulator.Host built from Config.
	Spawner Spawner
	// Scheduler defaults to a Loop owned and stopped by the panel.
	Scheduler Scheduler
	Now       func() time.Time
	LookPath  command.LookPath
	Logger    *logrus.Entry
}
