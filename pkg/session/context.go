package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/grovetools/embedterm/command"
	"github.com/grovetools/embedterm/errors"
	"github.com/grovetools/embedterm/pkg/paths"
	"github.com/grovetools/embedterm/pkg/tmux"
	"github.com/sirupsen/logrus"
)

// socketName is the file name of the control socket inside the run directory.
const socketName = "tmux.sock"

// Context identifies one run's private session namespace. It is created once per
// panel and handed to every component that touches the session, so tests can point
// the whole stack at a temporary directory.
type Context struct {
	// RunID is unique per process and per panel: "<pid>-<8 hex chars>".
	RunID      string
	Dir        string
	SocketPath string
	Name       string
	Logger     *logrus.Entry
}

// NewContext allocates a fresh run directory path under root (paths.SessionRoot()
// when empty). Nothing is created on disk until EnsureSocketNamespace.
func NewContext(root, name string, logger *logrus.Entry) (*Context, error) {
	if root == "" {
		root = paths.SessionRoot()
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	name = tmux.SanitizeForTmuxSession(name)
	runID := fmt.Sprintf("%d-%s", os.Getpid(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	dir := filepath.Join(root, runID)
	sock := filepath.Join(dir, socketName)

	builder := command.NewSafeBuilder()
	if err := builder.Validate("socketPath", sock); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "unusable session socket path").
			WithDetail("path", sock)
	}
	if err := builder.Validate("sessionName", name); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "unusable session name").
			WithDetail("name", name)
	}

	return &Context{
		RunID:      runID,
		Dir:        dir,
		SocketPath: sock,
		Name:       name,
		Logger:     logger.WithField("run", runID),
	}, nil
}
