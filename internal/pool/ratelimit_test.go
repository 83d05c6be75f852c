package pool

import (
	"testing"
	"time"
)

func TestIPRateLimiterEnforcesBurstCap(t *testing.T) {
	rl := newIPRateLimiter(10, 60*time.Second)

	admitted := 0
	for i := 0; i < 20; i++ {
		if rl.allow("198.51.100.7") {
			admitted++
		}
	}

	if admitted != 10 {
		t.Fatalf("admitted = %d, want 10 (the configured burst)", admitted)
	}
}

func TestIPRateLimiterIsolatesByIP(t *testing.T) {
	rl := newIPRateLimiter(1, 60*time.Second)

	if !rl.allow("10.0.0.1") {
		t.Fatal("first attempt from 10.0.0.1 should be admitted")
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("second attempt from 10.0.0.1 should be rejected")
	}
	if !rl.allow("10.0.0.2") {
		t.Fatal("first attempt from a different IP should be admitted")
	}
}

func TestIPRateLimiterReap(t *testing.T) {
	rl := newIPRateLimiter(5, 60*time.Second)
	rl.allow("10.0.0.1")

	rl.reap(0)

	rl.mu.Lock()
	n := len(rl.limiters)
	rl.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected reap to drop idle entries, got %d remaining", n)
	}
}
