// Package intercept routes selected key chords to the embedded session while the
// terminal has focus, ahead of any host shortcut.
package intercept

import (
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/embedterm/pkg/tmux"
)

// Decision is the outcome of Handle.
type Decision int

const (
	// Passthrough leaves the chord to normal host handling.
	Passthrough Decision = iota
	// Forward means the chord was sent to the session and must not propagate.
	Forward
)

func (d Decision) String() string {
	if d == Forward {
		return "forward"
	}
	return "passthrough"
}

// Chord is a key chord in bubbletea notation ("ctrl+d").
type Chord string

func (c Chord) String() string { return string(c) }

// Gateway is a two-state interceptor: inactive, or active while the terminal has
// focus. It sits once at the root of the host's input dispatch.
type Gateway struct {
	mu       sync.Mutex
	active   bool
	bindings []key.Binding
	forward  func(tmuxKey string)
}

// NewGateway creates an inactive gateway for chords. forward receives the tmux
// key name of every intercepted chord.
func NewGateway(chords []string, forward func(tmuxKey string)) *Gateway {
	g := &Gateway{forward: forward}
	g.SetChords(chords)
	return g
}

// SetChords replaces the intercepted chord set.
func (g *Gateway) SetChords(chords []string) {
	bindings := make([]key.Binding, 0, len(chords))
	for _, c := range chords {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		bindings = append(bindings, key.NewBinding(
			key.WithKeys(c),
			key.WithHelp(c, "send "+tmux.KeyName(c)+" to terminal"),
		))
	}

	g.mu.Lock()
	g.bindings = bindings
	g.mu.Unlock()
}

// Bindings returns the intercepted chords, e.g. for help rendering.
func (g *Gateway) Bindings() []key.Binding {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]key.Binding(nil), g.bindings...)
}

// Activate starts intercepting.
func (g *Gateway) Activate() {
	g.mu.Lock()
	g.active = true
	g.mu.Unlock()
}

// Deactivate stops intercepting.
func (g *Gateway) Deactivate() {
	g.mu.Lock()
	g.active = false
	g.mu.Unlock()
}

// Active reports whether the gateway is intercepting.
func (g *Gateway) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Handle decides what happens to chord and forwards it when intercepted.
func (g *Gateway) Handle(chord string) Decision {
	g.mu.Lock()
	if !g.active {
		g.mu.Unlock()
		return Passthrough
	}
	c := Chord(strings.ToLower(chord))
	matched := false
	for _, b := range g.bindings {
		if key.Matches(c, b) {
			matched = true
			break
		}
	}
	forward := g.forward
	g.mu.Unlock()

	if !matched {
		return Passthrough
	}
	if forward != nil {
		forward(tmux.KeyName(string(c)))
	}
	return Forward
}

// Filter is a tea.WithFilter hook. Intercepted key messages are consumed before
// any model sees them.
func (g *Gateway) Filter(_ tea.Model, msg tea.Msg) tea.Msg {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return msg
	}
	if g.Handle(km.String()) == Forward {
		return nil
	}
	return msg
}
