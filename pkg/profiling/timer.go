package profiling

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stopper ends a timed span.
type Stopper interface {
	Stop()
}

type span struct {
	name     string
	start    time.Time
	duration time.Duration
	children []*span
	recorder *recorder
}

func (s *span) Stop() {
	s.recorder.end(s, time.Since(s.start))
}

// recorder keeps nested spans. Spans started while another is open become its
// children, so Start/Stop pairs must nest on one goroutine.
type recorder struct {
	mu      sync.Mutex
	enabled bool
	root    *span
	stack   []*span
}

var global = &recorder{}

// Enable turns on span recording for the process.
func Enable() {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.enabled {
		return
	}
	global.enabled = true
	global.root = &span{name: "root", start: time.Now(), recorder: global}
	global.stack = []*span{global.root}
}

// Enabled reports whether spans are being recorded.
func Enabled() bool {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.enabled
}

// Start opens a span. It is a no-op until Enable is called.
func Start(name string) Stopper {
	return global.start(name)
}

// Summarize writes the span tree with durations and shares of the total.
func Summarize(w io.Writer) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if !global.enabled || global.root == nil {
		return
	}
	if global.root.duration == 0 {
		global.root.duration = time.Since(global.root.start)
	}

	fmt.Fprintln(w, "\n--- Timing Profile ---")
	printSpan(w, global.root, -1, global.root.duration)
	fmt.Fprintln(w, "----------------------")
}

func (r *recorder) start(name string) Stopper {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return noopStopper{}
	}
	parent := r.stack[len(r.stack)-1]
	s := &span{name: name, start: time.Now(), recorder: r}
	parent.children = append(parent.children, s)
	r.stack = append(r.stack, s)
	return s
}

func (r *recorder) end(s *span, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.duration = d
	for i := len(r.stack) - 1; i > 0; i-- {
		if r.stack[i] == s {
			r.stack = r.stack[:i]
			return
		}
	}
}

func printSpan(w io.Writer, s *span, depth int, total time.Duration) {
	if depth >= 0 {
		pct := 0.0
		if total > 0 {
			pct = float64(s.duration) / float64(total) * 100
		}
		fmt.Fprintf(w, "%s- %s (%v, %.1f%%)\n", strings.Repeat("  ", depth), s.name,
			s.duration.Round(100*time.Microsecond), pct)
	}

	sort.Slice(s.children, func(i, j int) bool {
		return s.children[i].start.Before(s.children[j].start)
	})
	for _, child := range s.children {
		printSpan(w, child, depth+1, total)
	}
}

type noopStopper struct{}

func (noopStopper) Stop() {}

// reset clears recorded spans. Tests only.
func reset() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.enabled = false
	global.root = nil
	global.stack = nil
}
