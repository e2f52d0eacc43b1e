// Package ratelimit enforces a per-minute ceiling on outbound directory calls
// using a sliding window of call timestamps.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window is the span over which calls are counted.
const Window = 60 * time.Second

// SafetyMargin is added to every wait so the oldest call has fully left the window.
const SafetyMargin = 10 * time.Millisecond

// SleepFunc suspends the caller for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Limiter is a sliding-window rate limiter. Safe for concurrent use; callers
// are serialized so the window accounting stays exact.
type Limiter struct {
	mu        sync.Mutex
	perMinute int
	calls     []time.Time
	now       func() time.Time
	sleep     SleepFunc
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithSleep replaces the context-aware timer sleep.
func WithSleep(sleep SleepFunc) Option {
	return func(l *Limiter) {
		l.sleep = sleep
	}
}

// New returns a limiter allowing perMinute calls per rolling minute.
// Values below 1 are clamped to 1.
func New(perMinute int, opts ...Option) *Limiter {
	if perMinute < 1 {
		perMinute = 1
	}
	l := &Limiter{
		perMinute: perMinute,
		calls:     make([]time.Time, 0, perMinute),
		now:       time.Now,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// PerMinute returns the configured ceiling.
func (l *Limiter) PerMinute() int {
	return l.perMinute
}

// Acquire blocks until one more call fits in the trailing window, then
// records it. It only returns early when ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	now := l.now()
	l.evict(now)
	for len(l.calls) >= l.perMinute {
		wait := Window - now.Sub(l.calls[0]) + SafetyMargin
		if wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
		}
		now = l.now()
		l.evict(now)
	}

	l.calls = append(l.calls, now)
	return nil
}

// Recorded returns a copy of the timestamps currently inside the window.
func (l *Limiter) Recorded() []time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]time.Time, len(l.calls))
	copy(out, l.calls)
	return out
}

func (l *Limiter) evict(now time.Time) {
	drop := 0
	for drop < len(l.calls) && now.Sub(l.calls[drop]) >= Window {
		drop++
	}
	if drop > 0 {
		l.calls = append(l.calls[:0], l.calls[drop:]...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
