package resilience

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToBurst(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(RateLimiterConfig{
		Capacity:        3,
		RefillPerSecond: 1,
		Now:             func() time.Time { return now },
	})

	for i := 0; i < 3; i++ {
		if !rl.Allow("server-a") {
			t.Fatalf("expected token %d to be allowed", i)
		}
	}
	if rl.Allow("server-a") {
		t.Fatal("expected 4th request to be denied at burst capacity")
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(RateLimiterConfig{
		Capacity:        2,
		RefillPerSecond: 1,
		Now:             func() time.Time { return now },
	})

	rl.Allow("k")
	rl.Allow("k")
	if rl.Allow("k") {
		t.Fatal("expected bucket exhausted")
	}

	now = now.Add(1500 * time.Millisecond)
	if !rl.Allow("k") {
		t.Fatal("expected a token to have refilled after 1.5s at 1/s")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(RateLimiterConfig{
		Capacity:        1,
		RefillPerSecond: 1,
		Now:             func() time.Time { return now },
	})

	if !rl.Allow("a") {
		t.Fatal("expected key a to have a fresh bucket")
	}
	if !rl.Allow("b") {
		t.Fatal("expected key b to have its own independent bucket")
	}
}

func TestRateLimiterFromRPM(t *testing.T) {
	cfg := NewRateLimiterConfigFromRPM(60, 5)
	if cfg.RefillPerSecond != 1 {
		t.Errorf("expected refill rate of 1/s for 60 rpm, got %f", cfg.RefillPerSecond)
	}
	if cfg.Capacity != 5 {
		t.Errorf("expected capacity 5, got %f", cfg.Capacity)
	}
}
