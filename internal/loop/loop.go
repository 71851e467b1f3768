// Package loop provides the single serial event loop the page runtime runs on.
//
// Every asynchronous completion (HTTP responses, script loads, transition
// timers) is posted onto a Poster, so page state is only ever touched by one
// goroutine at a time.
package loop

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned by Do when the loop is not running anymore.
var ErrStopped = errors.New("loop: stopped")

// Poster schedules f to run on the page's goroutine.
type Poster interface {
	Post(f func())
}

// Loop executes posted funcs one at a time, in posting order.
type Loop struct {
	queue chan func()

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// New creates a Loop whose queue holds up to backlog pending funcs before Post blocks.
func New(backlog int) *Loop {
	if backlog <= 0 {
		backlog = 64
	}
	return &Loop{
		queue: make(chan func(), backlog),
		done:  make(chan struct{}),
	}
}

// Run processes posted funcs until ctx is cancelled. It must be called once.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-l.queue:
			f()
		}
	}
}

// Post enqueues f. Funcs posted after the loop stopped are dropped.
func (l *Loop) Post(f func()) {
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		return
	}

	select {
	case l.queue <- f:
	case <-l.done:
	}
}

// Do runs f on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		return ErrStopped
	}

	select {
	case l.queue <- func() { f(); close(finished) }:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Immediate runs posted funcs inline on the posting goroutine. Hosts that
// drive the page from a single goroutine, and most tests, use it instead of a Loop.
type Immediate struct{}

// Post runs f right away.
func (Immediate) Post(f func()) { f() }
