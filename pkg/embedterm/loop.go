package embedterm

import (
	"context"
	"sync"
	"time"
)

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks on the single goroutine that owns the panel's state.
// Post returns false once the scheduler no longer runs callbacks.
type Scheduler interface {
	Post(fn func()) bool
	After(d time.Duration, fn func()) Timer
}

// Loop is a Scheduler backed by one goroutine draining a queue.
type Loop struct {
	queue chan func()
	quit  chan struct{}
	once  sync.Once
	done  chan struct{}
}

// NewLoop creates a loop. Nothing runs until Run is called.
func NewLoop() *Loop {
	return &Loop{
		queue: make(chan func(), 64),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Run executes posted callbacks until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.quit:
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

// Post queues fn. It blocks while the queue is full and returns false after Stop.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// After posts fn once d has elapsed.
func (l *Loop) After(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

// Call posts fn and waits for it to finish. It returns false if the loop has stopped.
func (l *Loop) Call(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Stop ends Run. Callbacks still queued are dropped.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.quit) })
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
