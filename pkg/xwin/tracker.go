package xwin

import (
	"github.com/sirupsen/logrus"
)

// Tracker caches the discovered emulator window for one container and
// suppresses resizes to the size it already has.
type Tracker struct {
	bridge    Bridge
	container uint32
	logger    *logrus.Entry

	child      uint32
	known      bool
	lastWidth  int
	lastHeight int
}

// NewTracker creates a tracker over bridge. SetContainer must be called before use.
func NewTracker(bridge Bridge, logger *logrus.Entry) *Tracker {
	return &Tracker{bridge: bridge, logger: logger}
}

// SetContainer points the tracker at a container window, forgetting any child.
func (t *Tracker) SetContainer(container uint32) {
	if container != t.container {
		t.Forget()
	}
	t.container = container
}

// Discover (re)locates the emulator window.
func (t *Tracker) Discover() (uint32, error) {
	child, err := t.bridge.DiscoverChild(t.container)
	if err != nil {
		t.Forget()
		return 0, err
	}
	if !t.known || child != t.child {
		t.logger.WithField("window", child).Debug("Discovered emulator window")
		t.lastWidth, t.lastHeight = 0, 0
	}
	t.child, t.known = child, true
	return child, nil
}

// Child returns the cached emulator window.
func (t *Tracker) Child() (uint32, bool) {
	return t.child, t.known
}

// ResizeChild resizes the emulator window, discovering it first if needed. A failed
// resize drops the cached window so the next call rediscovers it.
func (t *Tracker) ResizeChild(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	if !t.known {
		if _, err := t.Discover(); err != nil {
			return err
		}
	}
	if width == t.lastWidth && height == t.lastHeight {
		return nil
	}
	if err := t.bridge.ResizeChild(t.child, width, height); err != nil {
		t.logger.WithError(err).Debug("Resize failed, dropping cached window")
		t.Forget()
		return err
	}
	t.lastWidth, t.lastHeight = width, height
	return nil
}

// Forget drops the cached window.
func (t *Tracker) Forget() {
	t.child, t.known = 0, false
	t.lastWidth, t.lastHeight = 0, 0
}

// Close releases the underlying bridge.
func (t *Tracker) Close() error {
	t.Forget()
	return t.bridge.Close()
}
