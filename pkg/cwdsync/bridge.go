// Package cwdsync keeps the session's working directory and the host's logical
// directory in step without echoing changes back to where they came from.
package cwdsync

import (
	"context"
	"regexp"
	"strings"

	"github.com/grovetools/embedterm/errors"
	"github.com/grovetools/embedterm/util/pathutil"
	"github.com/sirupsen/logrus"
)

// Origin tags where a directory change came from.
type Origin int

const (
	// OriginHost is a change made by the host (e.g. a file browser navigated).
	OriginHost Origin = iota
	// OriginSession is a change observed in the terminal session.
	OriginSession
)

func (o Origin) String() string {
	switch o {
	case OriginHost:
		return "host"
	case OriginSession:
		return "session"
	default:
		return "unknown"
	}
}

// Channel is the subset of the tmux control channel the bridge needs.
type Channel interface {
	PaneCurrentPath(ctx context.Context, session string) (string, error)
	SendKeys(ctx context.Context, session string, keys ...string) error
	SendLiteral(ctx context.Context, session, text string) error
}

// Bridge is a poll-driven two-way directory link. It must be driven from a
// single goroutine.
type Bridge struct {
	ch      Channel
	session string
	notify  func(path string, origin Origin)
	logger  *logrus.Entry

	ready     bool
	lastKnown string
	hostCwd   string
	pending   string
}

// New creates a bridge. notify receives session-originated changes; it may be nil.
func New(ch Channel, session string, notify func(path string, origin Origin), logger *logrus.Entry) *Bridge {
	if notify == nil {
		notify = func(string, Origin) {}
	}
	return &Bridge{
		ch:      ch,
		session: session,
		notify:  notify,
		logger:  logger,
	}
}

// Poll reads the pane's directory and reports a change to the host when it is
// new and differs from the host's own directory. It does nothing until ready.
func (b *Bridge) Poll(ctx context.Context) error {
	if !b.ready {
		return nil
	}
	path, err := b.ch.PaneCurrentPath(ctx, b.session)
	if err != nil {
		return errors.SessionUnavailable("pane-current-path", err)
	}
	if path == "" || path == b.lastKnown {
		return nil
	}
	b.lastKnown = path
	if path == b.hostCwd {
		return nil
	}

	b.hostCwd = path
	b.logger.WithField("path", path).Debug("Session changed directory")
	b.notify(path, OriginSession)
	return nil
}

// RequestHostDirectoryChange moves the session to path on behalf of the host.
// Before readiness the request is parked and only the latest one survives.
func (b *Bridge) RequestHostDirectoryChange(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	path = canonical(path)
	b.hostCwd = path
	if !b.ready {
		b.pending = path
		b.logger.WithField("path", path).Debug("Session not ready, directory change pending")
		return nil
	}
	return b.inject(ctx, path)
}

// NoteHostCwd records the host's directory without touching the session. It is
// used for session-originated changes the host has just adopted.
func (b *Bridge) NoteHostCwd(path string) {
	if path != "" {
		b.hostCwd = canonical(path)
	}
}

// canonical resolves symlinks and dot segments the way tmux reports
// pane_current_path.
func canonical(path string) string {
	if resolved, err := pathutil.Canonical(path); err == nil {
		return resolved
	}
	return path
}

// HostCwd returns the host's last known logical directory.
func (b *Bridge) HostCwd() string {
	return b.hostCwd
}

// Pending returns the parked host directory, or "".
func (b *Bridge) Pending() string {
	return b.pending
}

// Ready reports whether the bridge talks to the session.
func (b *Bridge) Ready() bool {
	return b.ready
}

// MarkReady starts the link. A pending request is applied once; otherwise a
// fresh session is moved to the host directory, if one is known.
func (b *Bridge) MarkReady(ctx context.Context) error {
	b.ready = true
	target := b.pending
	b.pending = ""
	if target == "" {
		target = b.hostCwd
	}
	if target == "" {
		return nil
	}
	return b.inject(ctx, target)
}

// MarkNotReady stops the link until the next MarkReady. The host directory is kept
// so a recreated session can be moved back to it.
func (b *Bridge) MarkNotReady() {
	b.ready = false
	b.lastKnown = ""
}

// inject clears the line, types a cd command, runs it, and redraws the screen.
func (b *Bridge) inject(ctx context.Context, path string) error {
	steps := []func() error{
		func() error { return b.ch.SendKeys(ctx, b.session, "C-u") },
		func() error { return b.ch.SendKeys(ctx, b.session, "C-k") },
		func() error { return b.ch.SendLiteral(ctx, b.session, "cd -- "+Quote(path)) },
		func() error { return b.ch.SendKeys(ctx, b.session, "Enter") },
		func() error { return b.ch.SendKeys(ctx, b.session, "C-l") },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return errors.SessionUnavailable("send-keys", err)
		}
	}
	b.lastKnown = path
	b.logger.WithField("path", path).Debug("Moved session to host directory")
	return nil
}

var unsafeShellChars = regexp.MustCompile(`[^\w@%+=:,./-]`)

// Quote returns a shell-escaped version of s.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if !unsafeShellChars.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
