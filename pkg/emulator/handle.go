package emulator

// Handle is one spawned emulator process. Exactly one handle is live per session.
type Handle struct {
	Pid  int
	Pgid int
	// Started is true once the process has been created.
	Started bool
	// NativeWindow is the emulator's own window id, 0 until discovered.
	NativeWindow uint32

	done <-chan struct{}
}

// NewHandle wraps a started process. done must be closed when the process exits.
func NewHandle(pid, pgid int, done <-chan struct{}) *Handle {
	return &Handle{
		Pid:     pid,
		Pgid:    pgid,
		Started: true,
		done:    done,
	}
}

// Alive reports whether the process has not exited yet.
func (h *Handle) Alive() bool {
	if h == nil || !h.Started || h.done == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Done is closed when the process exits.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
