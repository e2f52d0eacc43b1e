// Package swarm runs batches of directory lookups on a bounded, adaptive
// worker pool. All workers share the caller's rate limiter, so the pool only
// overlaps latency; it never raises the request rate.
package swarm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is a unit of work for the pool.
type Task func(ctx context.Context) error

// tolerated carries a task failure the caller already handled.
type tolerated struct{ err error }

func (t tolerated) Error() string { return t.err.Error() }
func (t tolerated) Unwrap() error { return t.err }

// Tolerated marks err as handled by the task. The pool feeds it to the
// throttle check and keeps running; Run does not return it.
func Tolerated(err error) error {
	if err == nil {
		return nil
	}
	return tolerated{err: err}
}

// Stats holds runtime counters for a pool.
type Stats struct {
	ActiveWorkers  int
	Concurrency    int
	TasksCompleted int64
}

// Pool bounds in-flight tasks by the current AIMD target.
type Pool struct {
	aimd      *AIMD
	throttled func(error) bool

	mu     sync.Mutex
	cond   *sync.Cond
	active int

	completed atomic.Int64
}

// Option configures a Pool.
type Option func(*Pool)

// WithBounds sets the initial, minimum and maximum concurrency.
func WithBounds(start, min, max int) Option {
	return func(p *Pool) { p.aimd = NewAIMD(start, min, max) }
}

// WithThrottleCheck classifies task errors as throttling signals.
func WithThrottleCheck(fn func(error) bool) Option {
	return func(p *Pool) { p.throttled = fn }
}

// New returns a pool with at most workers concurrent tasks.
func New(workers int, opts ...Option) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		aimd:      NewAIMD(workers, 1, workers),
		throttled: func(error) bool { return false },
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes tasks and waits for them. The first task error cancels the
// rest and is returned, unless the task marked it with Tolerated.
func (p *Pool) Run(parent context.Context, tasks []Task) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	for _, task := range tasks {
		if err := p.acquire(gctx); err != nil {
			break
		}
		g.Go(func() error {
			start := time.Now()
			err := task(gctx)
			p.aimd.Feedback(time.Since(start), err != nil && p.throttled(err))
			p.completed.Add(1)
			var handled tolerated
			if errors.As(err, &handled) {
				err = nil
			}
			if err != nil {
				// stop admitting new tasks before the slot frees up
				cancel()
			}
			p.release()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return parent.Err()
}

func (p *Pool) acquire(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.active >= p.aimd.Concurrency() {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.active++
	return nil
}

func (p *Pool) release() {
	p.mu.Lock()
	p.active--
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()
	return Stats{
		ActiveWorkers:  active,
		Concurrency:    p.aimd.Concurrency(),
		TasksCompleted: p.completed.Load(),
	}
}
