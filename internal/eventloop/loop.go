// Package eventloop serializes all session state changes onto one goroutine.
//
// Transport callbacks, timers and file reads happen on arbitrary goroutines;
// they post closures here and the loop runs them one at a time, so the code
// inside a task never needs locks.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned when work is offered to a loop that has stopped.
var ErrClosed = errors.New("event loop closed")

// Loop is a single-threaded task queue. The queue is unbounded so a task may
// post follow-up work without ever blocking the loop on itself.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

// New creates a loop. Nothing runs until Run is called.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Run executes posted tasks until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.done:
			return nil
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			batch := l.queue
			l.queue = nil
			l.mu.Unlock()

			if len(batch) == 0 {
				break
			}
			for _, task := range batch {
				select {
				case <-l.done:
					return nil
				default:
				}
				task()
			}
		}
	}
}

// Post queues fn to run on the loop. It reports false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for it to finish.
// Calling Do from inside a loop task deadlocks.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Close stops the loop. Queued tasks that have not started are dropped.
func (l *Loop) Close() {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	})
}

// Timer is a one-shot task scheduled with AfterFunc.
type Timer struct {
	t       *time.Timer
	stopped atomic.Bool
}

// AfterFunc runs fn on the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	tm := &Timer{}
	tm.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if tm.stopped.Swap(true) {
				return
			}
			fn()
		})
	})
	return tm
}

// Stop cancels the timer. Once Stop returns, fn is guaranteed not to start,
// even if the deadline already passed and the task is sitting in the queue.
// Stop must be called from the loop for that guarantee to hold.
func (tm *Timer) Stop() {
	if tm == nil {
		return
	}
	tm.stopped.Store(true)
	tm.t.Stop()
}

// Ticker is a cancellable periodic task scheduled with Every.
type Ticker struct {
	stop    chan struct{}
	once    sync.Once
	stopped atomic.Bool
}

// Every runs fn on the loop every d until the ticker is stopped or the loop closes.
// Ticks that arrive while a previous one is still queued are not coalesced.
func (l *Loop) Every(d time.Duration, fn func()) *Ticker {
	tk := &Ticker{stop: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.Post(func() {
					if !tk.stopped.Load() {
						fn()
					}
				})
			case <-tk.stop:
				return
			case <-l.done:
				return
			}
		}
	}()

	return tk
}

// Stop cancels the ticker. A tick already queued on the loop is skipped.
func (tk *Ticker) Stop() {
	if tk == nil {
		return
	}
	tk.stopped.Store(true)
	tk.once.Do(func() { close(tk.stop) })
}
