package pool

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipRateLimiter tracks one token-bucket limiter per remote IP, reaped
// when idle. Built on golang.org/x/time/rate rather than the literal
// timestamp-deque the source data model describes, trading perfect
// sliding-window exactness for the standard library's battle-tested
// limiter: because the bucket refills continuously rather than sliding
// a strict window, a remote IP that exhausts its burst, waits just
// under the window, and bursts again can get admitted close to
// 2*maxAttemptsPerWindow attempts across that boundary, rather than the
// hard per-window cap a deque-based implementation would give. See
// DESIGN.md.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastUsedAt time.Time
}

func newIPRateLimiter(maxAttemptsPerWindow int, window time.Duration) *ipRateLimiter {
	limit := rate.Limit(float64(maxAttemptsPerWindow) / window.Seconds())
	return &ipRateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    limit,
		burst:    maxAttemptsPerWindow,
	}
}

// allow reports whether a new inbound attempt from ip is admitted.
func (rl *ipRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.limiters[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = e
	}
	e.lastUsedAt = time.Now()

	return e.limiter.Allow()
}

// reap drops limiter entries untouched for longer than idleAfter,
// bounding memory use across churns of transient remote IPs.
func (rl *ipRateLimiter) reap(idleAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, e := range rl.limiters {
		if time.Since(e.lastUsedAt) > idleAfter {
			delete(rl.limiters, ip)
		}
	}
}
