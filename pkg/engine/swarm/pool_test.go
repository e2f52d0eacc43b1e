package swarm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := New(3)
	var inFlight, peak atomic.Int32
	var done atomic.Int32

	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			n := inFlight.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inFlight.Add(-1)
			done.Add(1)
			return nil
		}
	}

	require.NoError(t, pool.Run(context.Background(), tasks))
	assert.Equal(t, int32(20), done.Load())
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, int64(20), pool.Stats().TasksCompleted)
	assert.Zero(t, pool.Stats().ActiveWorkers)
}

func TestPoolStopsOnFirstError(t *testing.T) {
	pool := New(1)
	boom := errors.New("boom")
	var ran atomic.Int32

	tasks := []Task{
		func(ctx context.Context) error { ran.Add(1); return boom },
		func(ctx context.Context) error { ran.Add(1); return nil },
		func(ctx context.Context) error { ran.Add(1); return nil },
	}
	err := pool.Run(context.Background(), tasks)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), ran.Load())
}

func TestPoolHonoursCancellation(t *testing.T) {
	pool := New(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	err := pool.Run(ctx, []Task{func(ctx context.Context) error { ran.Add(1); return nil }})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ran.Load())
}

func TestPoolBacksOffWhenThrottled(t *testing.T) {
	throttle := errors.New("throttled")
	pool := New(8, WithBounds(8, 1, 8), WithThrottleCheck(func(err error) bool { return errors.Is(err, throttle) }))
	pool.aimd.lastChange = time.Time{}

	_ = pool.Run(context.Background(), []Task{func(ctx context.Context) error { return throttle }})
	assert.Equal(t, 4, pool.Stats().Concurrency)
}

func TestPoolToleratedErrorsStillThrottle(t *testing.T) {
	throttle := errors.New("throttled")
	pool := New(8, WithBounds(8, 1, 8), WithThrottleCheck(func(err error) bool { return errors.Is(err, throttle) }))

	var ran atomic.Int32
	tasks := make([]Task, 5)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			ran.Add(1)
			return Tolerated(throttle)
		}
	}
	require.NoError(t, pool.Run(context.Background(), tasks))
	assert.Equal(t, int32(5), ran.Load(), "tolerated errors do not stop the batch")
	assert.Less(t, pool.Stats().Concurrency, 8)
}

func TestToleratedNil(t *testing.T) {
	assert.NoError(t, Tolerated(nil))
}
