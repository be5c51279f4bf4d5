// Package loop provides the editor's single logical thread.
//
// Network work runs on goroutines, but every completion is queued and executed only by the
// goroutine driving the loop (Run, Settle or Next). Code invoked from completions can
// therefore mutate editor state without locks.
package loop

import (
	"context"
	"sync"
)

type Loop struct {
	mu          sync.Mutex
	queue       []func()
	outstanding int
	wake        chan struct{}
}

func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn to run on the loop.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.outstanding++
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// Go runs work on its own goroutine and queues the continuation it returns.
// A nil continuation is allowed.
func (l *Loop) Go(work func() func()) {
	l.mu.Lock()
	l.outstanding++
	l.mu.Unlock()

	go func() {
		cont := work()
		l.mu.Lock()
		l.queue = append(l.queue, func() {
			if cont != nil {
				cont()
			}
		})
		l.mu.Unlock()
		l.signal()
	}()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending reports queued callbacks plus work whose continuation has not run yet.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.outstanding
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) finish() {
	l.mu.Lock()
	l.outstanding--
	l.mu.Unlock()
}

func (l *Loop) runOne(fn func()) {
	defer l.finish()
	fn()
}

// Next blocks until a callback is available and returns it wrapped so that running it
// also marks it finished. It returns nil when ctx is done.
func (l *Loop) Next(ctx context.Context) func() {
	for {
		if fn, ok := l.pop(); ok {
			return func() { l.runOne(fn) }
		}
		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}
	}
}

// Run executes callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		fn := l.Next(ctx)
		if fn == nil {
			return ctx.Err()
		}
		fn()
	}
}

// Settle executes callbacks on the calling goroutine until nothing is outstanding,
// including callbacks queued by the callbacks it runs.
func (l *Loop) Settle(ctx context.Context) error {
	for {
		if fn, ok := l.pop(); ok {
			l.runOne(fn)
			continue
		}
		if l.Pending() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}
