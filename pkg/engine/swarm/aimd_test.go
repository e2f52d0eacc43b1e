package swarm

import (
	"testing"
	"time"
)

func TestAIMD_Feedback(t *testing.T) {
	aimd := NewAIMD(4, 2, 6)
	clock := time.Unix(0, 0)
	aimd.now = func() time.Time { return clock }
	aimd.lastChange = clock

	if aimd.Concurrency() != 4 {
		t.Errorf("Expected initial concurrency 4, got %d", aimd.Concurrency())
	}

	// changes inside the settle window are ignored
	aimd.Feedback(10*time.Millisecond, false)
	if aimd.Concurrency() != 4 {
		t.Errorf("Expected concurrency to hold at 4, got %d", aimd.Concurrency())
	}

	clock = clock.Add(settle)
	aimd.Feedback(10*time.Millisecond, false)
	if aimd.Concurrency() != 5 {
		t.Errorf("Expected concurrency 5 after success, got %d", aimd.Concurrency())
	}

	clock = clock.Add(settle)
	aimd.Feedback(10*time.Second, false)
	if aimd.Concurrency() != 5 {
		t.Errorf("Slow calls must not scale up, got %d", aimd.Concurrency())
	}

	clock = clock.Add(settle)
	aimd.Feedback(10*time.Millisecond, true)
	if aimd.Concurrency() != 2 {
		t.Errorf("Expected concurrency 2 after throttle, got %d", aimd.Concurrency())
	}

	clock = clock.Add(settle)
	aimd.Feedback(10*time.Millisecond, true)
	if aimd.Concurrency() != 2 {
		t.Errorf("Concurrency dropped below min limit: %d", aimd.Concurrency())
	}
}

func TestAIMD_ClampsBounds(t *testing.T) {
	aimd := NewAIMD(50, 0, 8)
	if aimd.Concurrency() != 8 {
		t.Errorf("Expected start clamped to 8, got %d", aimd.Concurrency())
	}
}
