package xwin

import (
	"fmt"
	"strings"
	"sync"

	"github.com/grovetools/embedterm/errors"
)

// FakeWindow is one window in a Fake window system.
type FakeWindow struct {
	Class  string
	Width  int
	Height int
	Mapped bool
	// Configures counts configure requests that changed the window's size.
	Configures int
}

// Fake is an in-memory window system implementing Bridge and Inspector.
type Fake struct {
	mu       sync.Mutex
	class    string
	windows  map[uint32]*FakeWindow
	children map[uint32][]uint32
	closed   bool
}

// NewFake creates an empty fake that prefers children whose class contains class.
func NewFake(class string) *Fake {
	return &Fake{
		class:    strings.ToLower(class),
		windows:  make(map[uint32]*FakeWindow),
		children: make(map[uint32][]uint32),
	}
}

// AddWindow registers win as a child of parent (0 for a top-level window).
func (f *Fake) AddWindow(parent, win uint32, w FakeWindow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := w
	f.windows[win] = &copied
	if parent != 0 {
		f.children[parent] = append(f.children[parent], win)
	}
}

// RemoveWindow destroys win, as when the emulator exits.
func (f *Fake) RemoveWindow(win uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.windows, win)
	for parent, kids := range f.children {
		for i, k := range kids {
			if k == win {
				f.children[parent] = append(kids[:i:i], kids[i+1:]...)
				break
			}
		}
	}
}

// SetMapped changes win's map state.
func (f *Fake) SetMapped(win uint32, mapped bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.windows[win]; ok {
		w.Mapped = mapped
	}
}

// Window returns a snapshot of win.
func (f *Fake) Window(win uint32) (FakeWindow, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[win]
	if !ok {
		return FakeWindow{}, false
	}
	return *w, true
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) DiscoverChild(container uint32) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kids := f.children[container]
	if len(kids) == 0 {
		return 0, errors.GeometryDiscovery(container)
	}
	if f.class != "" {
		for _, k := range kids {
			if strings.Contains(strings.ToLower(f.windows[k].Class), f.class) {
				return k, nil
			}
		}
	}
	return kids[0], nil
}

func (f *Fake) ResizeChild(win uint32, width, height int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[win]
	if !ok {
		return errors.New(errors.ErrCodeGeometryDiscovery, fmt.Sprintf("BadWindow 0x%x", win))
	}
	if w.Width != width || w.Height != height {
		w.Width, w.Height = width, height
		w.Configures++
	}
	return nil
}

func (f *Fake) Mapped(win uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[win]
	return ok && w.Mapped
}

func (f *Fake) Geometry(win uint32) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[win]
	if !ok {
		return 0, 0, errors.New(errors.ErrCodeGeometryDiscovery, fmt.Sprintf("BadDrawable 0x%x", win))
	}
	return w.Width, w.Height, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
