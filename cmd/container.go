package cmd

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/embedterm/errors"
	"github.com/grovetools/embedterm/pkg/xwin"
	"github.com/sirupsen/logrus"
)

const containerPollInterval = 200 * time.Millisecond

// containerEvents is the part of the panel driven by container polling.
type containerEvents interface {
	OnContainerMapped()
	OnContainerResized(width, height int)
}

// watchedContainer adapts an existing X window to embedterm.Container. The CLI
// gets no map or configure notifications, so state comes from polling.
type watchedContainer struct {
	inspector xwin.Inspector
	focus     func(win uint32) error
	id        uint32
	logger    *logrus.Entry

	mu     sync.Mutex
	mapped bool
	width  int
	height int
}

func newWatchedContainer(inspector xwin.Inspector, id uint32, focus func(uint32) error, logger *logrus.Entry) *watchedContainer {
	return &watchedContainer{inspector: inspector, id: id, focus: focus, logger: logger}
}

func (c *watchedContainer) WindowID() (uint32, bool) {
	return c.id, c.id != 0
}

func (c *watchedContainer) Mapped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mapped
}

func (c *watchedContainer) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *watchedContainer) RequestFocus() {
	if c.focus == nil {
		return
	}
	if err := c.focus(c.id); err != nil {
		c.logger.WithError(err).Debug("Focus request failed")
	}
}

// refresh re-reads the container state and reports what changed.
func (c *watchedContainer) refresh() (becameMapped, resized bool) {
	mapped := c.inspector.Mapped(c.id)
	width, height, err := c.inspector.Geometry(c.id)

	c.mu.Lock()
	defer c.mu.Unlock()
	becameMapped = mapped && !c.mapped
	c.mapped = mapped
	if err == nil && (width != c.width || height != c.height) {
		c.width, c.height = width, height
		resized = true
	}
	return becameMapped, resized
}

// watch polls until ctx is done and forwards changes to target.
func (c *watchedContainer) watch(ctx context.Context, interval time.Duration, target containerEvents) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		c.poll(target)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *watchedContainer) poll(target containerEvents) {
	becameMapped, resized := c.refresh()
	if becameMapped {
		target.OnContainerMapped()
	}
	if resized {
		w, h := c.Size()
		target.OnContainerResized(w, h)
	}
}

// parseWindowID accepts decimal and 0x-prefixed hex ids, as printed by xwininfo.
func parseWindowID(s string) (uint32, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil || id == 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid window id: "+s).
			WithDetail("window", s)
	}
	return uint32(id), nil
}
