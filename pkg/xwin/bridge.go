// Package xwin finds and resizes the emulator's native window inside the host container.
package xwin

// Bridge is the window-system surface the panel needs: locate the emulator's
// window under a container and push a pixel size onto it.
type Bridge interface {
	// DiscoverChild returns the emulator window under container. Children whose
	// WM_CLASS matches the configured class win; otherwise the first child is used.
	DiscoverChild(container uint32) (uint32, error)
	// ResizeChild configures win to width x height pixels and raises it.
	ResizeChild(win uint32, width, height int) error
	Close() error
}

// Inspector answers container state queries for hosts that do not receive
// map and resize notifications themselves (the standalone CLI).
type Inspector interface {
	Mapped(win uint32) bool
	Geometry(win uint32) (width, height int, err error)
}
