package cmd

import (
	"fmt"
	"strings"
	"sync"

	"github.com/grovetools/embedterm/errors"
	"github.com/grovetools/embedterm/logging"
	"github.com/grovetools/embedterm/pkg/cwdsync"
	"github.com/sirupsen/logrus"
)

// cliHost receives panel notifications when embedterm runs standalone.
// The most recent notice is kept for the status view.
type cliHost struct {
	logger *logrus.Entry
	pretty *logging.PrettyLogger
	quiet  bool

	mu     sync.Mutex
	notice string
	cwd    string
}

func newCLIHost(logger *logrus.Entry, pretty *logging.PrettyLogger) *cliHost {
	return &cliHost{logger: logger, pretty: pretty}
}

func (h *cliHost) NotifyCwdChanged(path string, origin cwdsync.Origin) {
	h.logger.WithFields(logrus.Fields{"path": path, "origin": origin.String()}).Info("Working directory changed")
	h.mu.Lock()
	h.cwd = path
	h.mu.Unlock()
}

func (h *cliHost) NotifyMissingDependency(names []string) {
	err := errors.MissingDependency(names)
	h.setNotice(fmt.Sprintf("missing: %s", strings.Join(names, ", ")))
	if !h.quiet {
		h.pretty.ErrorPretty("Cannot start the embedded terminal", err)
	}
}

func (h *cliHost) NotifyError(err error) {
	h.logger.WithError(err).Warn("Embedded terminal reported an error")
	h.setNotice(err.Error())
	if !h.quiet {
		h.pretty.WarnPretty(err.Error())
	}
}

func (h *cliHost) setNotice(notice string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notice = notice
}

// Notice returns the latest user-facing message, or "".
func (h *cliHost) Notice() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.notice
}

// Cwd returns the last directory reported by the session.
func (h *cliHost) Cwd() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cwd
}
