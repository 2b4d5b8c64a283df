package logging

import (
	"io"
	"os"
	"sync"
)

// consoleSink is the stderr side of every logger built here. Loggers hold the
// sink itself, so swapping its target reroutes all of them at once.
type consoleSink struct {
	mu     sync.RWMutex
	target io.Writer
}

func (s *consoleSink) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target.Write(p)
}

func (s *consoleSink) swap(w io.Writer) io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.target
	s.target = w
	return prev
}

var console = &consoleSink{target: os.Stderr}

// SetGlobalOutput points the console sink of every logger at w.
func SetGlobalOutput(w io.Writer) {
	console.swap(w)
}

// RedirectGlobalOutput points the console sink at w until the returned func is
// called, which puts the previous target back. Full-screen UIs use it so log
// lines do not land on the screen they draw.
func RedirectGlobalOutput(w io.Writer) (restore func()) {
	prev := console.swap(w)
	var once sync.Once
	return func() {
		once.Do(func() { console.swap(prev) })
	}
}

// GetGlobalOutput returns the shared console sink.
func GetGlobalOutput() io.Writer {
	return console
}
