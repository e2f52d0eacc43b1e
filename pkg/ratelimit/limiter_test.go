package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the limiter sleeps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

func newTestLimiter(rpm int) (*Limiter, *fakeClock) {
	clock := newFakeClock()
	return New(rpm, WithClock(clock.Now), WithSleep(clock.Sleep)), clock
}

func TestNew_ClampsCeiling(t *testing.T) {
	assert.Equal(t, 1, New(0).PerMinute())
	assert.Equal(t, 1, New(-5).PerMinute())
	assert.Equal(t, 30, New(30).PerMinute())
}

func TestAcquire_NeverExceedsCeilingInAnyWindow(t *testing.T) {
	const rpm = 7
	l, clock := newTestLimiter(rpm)
	ctx := context.Background()

	var stamps []time.Time
	for i := 0; i < 50; i++ {
		require.NoError(t, l.Acquire(ctx))
		stamps = append(stamps, clock.Now())
		assert.LessOrEqual(t, len(l.Recorded()), rpm)
	}

	// Any rpm+1 consecutive calls must span at least a full window.
	for i := 0; i+rpm < len(stamps); i++ {
		span := stamps[i+rpm].Sub(stamps[i])
		assert.GreaterOrEqual(t, span, Window, "calls %d..%d fit in one window", i, i+rpm)
	}
}

func TestAcquire_ElapsedConvergesToRate(t *testing.T) {
	const rpm = 60
	const calls = 600
	l, clock := newTestLimiter(rpm)
	start := clock.Now()

	for i := 0; i < calls; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}

	elapsed := clock.Now().Sub(start)
	expected := time.Duration(calls/rpm)*Window - Window
	assert.InDelta(t, expected.Seconds(), elapsed.Seconds(), 1.0)
}

func TestAcquire_UnderCeilingDoesNotWait(t *testing.T) {
	l, clock := newTestLimiter(10)
	start := clock.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}
	assert.Equal(t, start, clock.Now())
}

func TestAcquire_CancelledWhileWaiting(t *testing.T) {
	l := New(1)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, l.Recorded(), 1)
}

func TestAcquire_ConcurrentCallersShareWindow(t *testing.T) {
	const rpm = 5
	l, _ := newTestLimiter(rpm)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Acquire(context.Background()))
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, len(l.Recorded()), rpm)
}
