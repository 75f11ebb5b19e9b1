package worker

import (
	"context"
	"sync"
	"sync/atomic"
)

// Pool bounds the parallelism of an entry point to the invocation thread
// budget. Workers fan per-input work out through Go and collect the first
// failure with Wait; the shell itself stays single-threaded.
type Pool struct {
	sem    chan struct{}
	wg     sync.WaitGroup
	active int64
	peak   int64

	mu       sync.Mutex
	firstErr error
}

// NewPool creates a pool running at most threads tasks at once. A budget
// below one is clamped to sequential execution.
func NewPool(threads int) *Pool {
	if threads <= 0 {
		threads = 1
	}
	return &Pool{sem: make(chan struct{}, threads)}
}

// Go runs fn on its own goroutine once a slot frees up. It blocks while the
// pool is saturated and returns the context error if cancelled while waiting.
// A task error does not stop other tasks; Wait reports the first one.
func (p *Pool) Go(ctx context.Context, fn func() error) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	current := atomic.AddInt64(&p.active, 1)
	p.updatePeak(current)

	p.wg.Add(1)
	go func() {
		defer func() {
			atomic.AddInt64(&p.active, -1)
			<-p.sem
			p.wg.Done()
		}()

		if err := fn(); err != nil {
			p.mu.Lock()
			if p.firstErr == nil {
				p.firstErr = err
			}
			p.mu.Unlock()
		}
	}()

	return nil
}

// Wait blocks until every started task finished and returns the first task
// error, if any.
func (p *Pool) Wait() error {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.firstErr
}

// Active returns the number of tasks currently running.
func (p *Pool) Active() int64 {
	return atomic.LoadInt64(&p.active)
}

// Peak returns the highest number of tasks that ran at once.
func (p *Pool) Peak() int64 {
	return atomic.LoadInt64(&p.peak)
}

func (p *Pool) updatePeak(current int64) {
	for {
		peak := atomic.LoadInt64(&p.peak)
		if current <= peak {
			return
		}
		if atomic.CompareAndSwapInt64(&p.peak, peak, current) {
			return
		}
	}
}
