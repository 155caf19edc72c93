package ratelimit

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time          { return c.t }
func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit float64, burst int, idle time.Duration) (*KeyedRateLimiter, *manualClock) {
	clock := &manualClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := New(rate.Limit(limit), burst, 0)
	rl.idleTTL = idle
	rl.now = clock.now
	return rl, clock
}

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial requests", rps: 1, burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst blocks", rps: 1, burst: 2, calls: 5, wantPass: 2},
		{name: "single token", rps: 1, burst: 1, calls: 4, wantPass: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl, _ := newTestLimiter(tt.rps, tt.burst, 0)
			defer rl.Stop()

			passed := 0
			for range tt.calls {
				if rl.Allow("test") {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_Refill(t *testing.T) {
	rl, clock := newTestLimiter(1, 1, 0)
	defer rl.Stop()

	if !rl.Allow("ip") {
		t.Fatal("first call should pass")
	}
	if rl.Allow("ip") {
		t.Fatal("second immediate call should be limited")
	}

	clock.advance(time.Second)
	if !rl.Allow("ip") {
		t.Error("call after refill should pass")
	}
}

func TestKeyedRateLimiter_KeysIndependent(t *testing.T) {
	rl, _ := newTestLimiter(1, 1, 0)
	defer rl.Stop()

	if !rl.Allow("a") || !rl.Allow("b") {
		t.Fatal("each key should get its own bucket")
	}
	if rl.Allow("a") {
		t.Error("key a should be exhausted")
	}
}

func TestKeyedRateLimiter_EvictIdle(t *testing.T) {
	rl, clock := newTestLimiter(1, 1, time.Minute)
	defer rl.Stop()

	rl.Allow("old")
	clock.advance(2 * time.Minute)
	rl.Allow("fresh")

	rl.evictIdle()

	if got := rl.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	if !rl.Allow("old") {
		t.Error("evicted key should start with a full bucket")
	}
}

func TestPerMinute(t *testing.T) {
	if got := PerMinute(30); got != 0.5 {
		t.Errorf("PerMinute(30) = %v, want 0.5", got)
	}
}

func TestStop_Idempotent(t *testing.T) {
	rl := New(1, 1, time.Hour)
	rl.Stop()
	rl.Stop()
	if err := rl.Shutdown(); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
}
