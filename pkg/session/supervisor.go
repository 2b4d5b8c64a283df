package session

import (
	"context"
	"os"
	"path/filepath"

	"github.com/grovetools/embedterm/errors"
	"github.com/grovetools/embedterm/pkg/tmux"
	"github.com/sirupsen/logrus"
)

// Supervisor owns the private socket namespace and the tmux session inside it.
// It is not safe for concurrent use; the panel drives it from a single goroutine.
type Supervisor struct {
	sc     *Context
	client *tmux.Client
	logger *logrus.Entry

	ready     bool
	clientTTY string
}

// NewSupervisor creates a supervisor for the session described by sc.
func NewSupervisor(sc *Context, client *tmux.Client) *Supervisor {
	return &Supervisor{
		sc:     sc,
		client: client,
		logger: sc.Logger.WithField("session", sc.Name),
	}
}

// Client returns the control channel bound to this session's socket.
func (s *Supervisor) Client() *tmux.Client {
	return s.client
}

// Name returns the logical session name.
func (s *Supervisor) Name() string {
	return s.sc.Name
}

// EnsureSocketNamespace creates the owner-only run directory. A directory left
// behind by an earlier failed attempt has its permissions reset instead.
func (s *Supervisor) EnsureSocketNamespace() error {
	if err := os.MkdirAll(filepath.Dir(s.sc.Dir), 0o700); err != nil {
		return errors.Wrap(err, errors.ErrCodePermissionDenied, "failed to create session root").
			WithDetail("path", filepath.Dir(s.sc.Dir))
	}

	err := os.Mkdir(s.sc.Dir, 0o700)
	if err == nil {
		s.logger.WithField("dir", s.sc.Dir).Debug("Created socket namespace")
		return nil
	}
	if !os.IsExist(err) {
		return errors.Wrap(err, errors.ErrCodePermissionDenied, "failed to create socket namespace").
			WithDetail("path", s.sc.Dir)
	}

	if err := os.Chmod(s.sc.Dir, 0o700); err != nil {
		return errors.Wrap(err, errors.ErrCodePermissionDenied, "failed to reset socket namespace permissions").
			WithDetail("path", s.sc.Dir)
	}
	s.logger.WithField("dir", s.sc.Dir).Debug("Reset permissions on existing socket namespace")
	return nil
}

// HasSession reports whether the session exists. Any failure, including a missing
// tmux binary, counts as "no session".
func (s *Supervisor) HasSession(ctx context.Context) bool {
	ok, err := s.client.HasSession(ctx, s.sc.Name)
	if err != nil {
		s.logger.WithError(err).Debug("Session check failed")
		return false
	}
	return ok
}

// CreateSession starts a detached session on the private socket and primes it.
// It is the cheap recovery path used when the emulator survived but the session did not.
func (s *Supervisor) CreateSession(ctx context.Context) error {
	if err := s.client.NewDetachedSession(ctx, s.sc.Name); err != nil {
		return errors.SessionUnavailable("create-session", err)
	}
	s.logger.Info("Created detached session")
	s.Prime(ctx)
	return nil
}

// Prime marks the session ready, silences bells and activity alerts, and records
// the first attached client's tty. Only readiness is mandatory; the rest is best effort.
func (s *Supervisor) Prime(ctx context.Context) {
	s.ready = true

	if err := s.client.QuietBell(ctx); err != nil {
		s.logger.WithError(err).Debug("Failed to silence session bell")
	}
	s.RefreshClientTTY(ctx)
}

// RefreshClientTTY re-resolves the tty of the first attached client. An empty
// result leaves the previous value in place.
func (s *Supervisor) RefreshClientTTY(ctx context.Context) string {
	ttys, err := s.client.ClientTTYs(ctx, s.sc.Name)
	if err != nil {
		s.logger.WithError(err).Debug("Failed to list session clients")
		return s.clientTTY
	}
	if len(ttys) > 0 {
		s.clientTTY = ttys[0]
	}
	return s.clientTTY
}

// Ready reports whether the session has been confirmed to exist.
func (s *Supervisor) Ready() bool {
	return s.ready
}

// MarkNotReady forgets readiness and the cached client, e.g. before a respawn.
func (s *Supervisor) MarkNotReady() {
	s.ready = false
	s.clientTTY = ""
}

// ClientTTY returns the cached tty of the attached client, or "".
func (s *Supervisor) ClientTTY() string {
	return s.clientTTY
}

// KillServer forgets readiness and stops the tmux server, keeping the run directory
// for the respawn that follows.
func (s *Supervisor) KillServer(ctx context.Context) {
	s.MarkNotReady()
	if err := s.client.KillServer(ctx); err != nil {
		s.logger.WithError(err).Debug("kill-server failed")
	}
}

// DestroyAll kills the tmux server and removes the run directory. Failures are
// logged and swallowed.
func (s *Supervisor) DestroyAll(ctx context.Context) {
	s.KillServer(ctx)
	if err := os.RemoveAll(s.sc.Dir); err != nil {
		s.logger.WithError(err).Debug("Failed to remove socket namespace")
	}
}
