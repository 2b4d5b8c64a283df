package mocks

import (
	"context"
	"strings"
	"sync"
)

// Runner is a scripted implementation of command.Runner for testing.
// Responses are keyed by the full command line ("tmux -S /s has-session -t =x").
// Keys may be registered with SetPrefix to match any command starting with them.
type Runner struct {
	mu       sync.Mutex
	calls    [][]string
	output   map[string]string
	errs     map[string]error
	prefixes []prefixResponse

	// RunFunc, if set, is consulted before the scripted tables.
	RunFunc func(ctx context.Context, name string, args ...string) (handled bool, output string, err error)
}

type prefixResponse struct {
	prefix string
	output string
	err    error
}

// NewRunner creates an empty scripted runner. Unscripted commands succeed with no output.
func NewRunner() *Runner {
	return &Runner{
		output: make(map[string]string),
		errs:   make(map[string]error),
	}
}

// Key builds the lookup key for a command and its arguments.
func Key(name string, args ...string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

// Set scripts the output and error for an exact command line.
func (r *Runner) Set(output string, err error, name string, args ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := Key(name, args...)
	r.output[k] = output
	if err != nil {
		r.errs[k] = err
	} else {
		delete(r.errs, k)
	}
}

// SetPrefix scripts the output and error for every command line beginning with prefix.
// Later registrations win over earlier ones.
func (r *Runner) SetPrefix(output string, err error, prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefixes = append([]prefixResponse{{prefix: prefix, output: output, err: err}}, r.prefixes...)
}

// Run records the call and returns the scripted response.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	runFunc := r.RunFunc
	r.mu.Unlock()

	if runFunc != nil {
		if ok, out, err := runFunc(ctx, name, args...); ok {
			return out, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	k := Key(name, args...)
	if out, ok := r.output[k]; ok {
		return out, r.errs[k]
	}
	if err, ok := r.errs[k]; ok {
		return "", err
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(k, p.prefix) {
			return p.output, p.err
		}
	}
	return "", nil
}

// Calls returns a copy of every recorded invocation.
func (r *Runner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Reset forgets recorded calls but keeps scripted responses.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Count returns how many recorded calls contain every given argument, in order.
func (r *Runner) Count(args ...string) int {
	n := 0
	for _, call := range r.Calls() {
		if containsSeq(call, args) {
			n++
		}
	}
	return n
}

func containsSeq(call, seq []string) bool {
	if len(seq) == 0 {
		return true
	}
	for i := 0; i+len(seq) <= len(call); i++ {
		match := true
		for j := range seq {
			if call[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
