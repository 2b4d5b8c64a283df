package embedterm

// State is the supervisor's lifecycle state.
type State int32

const (
	StateUnstarted State = iota
	StateSpawning
	StateReady
	StateDegraded
	StateRespawning
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateSpawning:
		return "spawning"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	case StateRespawning:
		return "respawning"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// running reports whether an emulator process is supposed to exist.
func (s State) running() bool {
	switch s {
	case StateSpawning, StateReady, StateDegraded, StateRespawning:
		return true
	}
	return false
}

// Status is a snapshot of the panel for display.
type Status struct {
	State     State
	Pid       int
	Window    uint32
	Cwd       string
	Cols      int
	Rows      int
	Respawns  int
	Intercept bool
	Inert     bool
}
