package mpris

import (
	"context"
	"sync"
	"time"
)

// scheduler serializes every state mutation of the backend onto one goroutine.
// Bus round-trips run in async work functions; the continuation they return is
// posted back to the owner goroutine.
type scheduler interface {
	post(fn func())
	async(ctx context.Context, work func(ctx context.Context) func())
	after(d time.Duration, fn func()) (stop func())
}

// loop is the production scheduler: an unbounded FIFO drained by run.
type loop struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	done    chan struct{}
}

func newLoop() *loop {
	return &loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (l *loop) post(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *loop) async(ctx context.Context, work func(ctx context.Context) func()) {
	go func() {
		if cont := work(ctx); cont != nil {
			l.post(cont)
		}
	}()
}

func (l *loop) after(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, func() { l.post(fn) })
	return func() { t.Stop() }
}

// run drains the queue until ctx is cancelled.
func (l *loop) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			batch := l.pending
			l.pending = nil
			l.mu.Unlock()

			if len(batch) == 0 {
				break
			}
			for _, fn := range batch {
				if ctx.Err() != nil {
					return
				}
				fn()
			}
		}
	}
}
