package swarm

import (
	"sync"
	"time"
)

// settle is the minimum gap between two concurrency changes.
const settle = 100 * time.Millisecond

// AIMD adjusts a concurrency target: additive increase while calls are fast,
// multiplicative decrease when the directory throttles.
type AIMD struct {
	mu          sync.Mutex
	concurrency int
	minWorkers  int
	maxWorkers  int
	step        int
	healthy     time.Duration
	lastChange  time.Time
	now         func() time.Time
}

func NewAIMD(start, min, max int) *AIMD {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	start = clamp(start, min, max)
	return &AIMD{
		concurrency: start,
		minWorkers:  min,
		maxWorkers:  max,
		step:        1,
		healthy:     250 * time.Millisecond,
		now:         time.Now,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (a *AIMD) Concurrency() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.concurrency
}

// Feedback reports the latency of one finished task and whether it was
// throttled.
func (a *AIMD) Feedback(lat time.Duration, throttled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if now.Sub(a.lastChange) < settle {
		return
	}

	if throttled {
		a.concurrency = clamp(a.concurrency/2, a.minWorkers, a.maxWorkers)
		a.lastChange = now
		return
	}

	if lat < a.healthy && a.concurrency < a.maxWorkers {
		a.concurrency = clamp(a.concurrency+a.step, a.minWorkers, a.maxWorkers)
		a.lastChange = now
	}
}
