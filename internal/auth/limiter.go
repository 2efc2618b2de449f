package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxTrackedKeys = 10000

// FailureLimiter throttles repeated failed sign-ins per email. Each key may
// fail maxFailures times in a burst; capacity then refills evenly over window.
type FailureLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewFailureLimiter(maxFailures int, window time.Duration) *FailureLimiter {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &FailureLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(window / time.Duration(maxFailures)),
		burst:    maxFailures,
	}
}

func (f *FailureLimiter) get(key string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[key]
	if !ok {
		if len(f.limiters) >= maxTrackedKeys {
			f.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(f.limit, f.burst)
		f.limiters[key] = lim
	}
	return lim
}

// Blocked reports whether key has used up its failure allowance.
func (f *FailureLimiter) Blocked(key string) bool {
	return f.get(key).Tokens() < 1
}

// Fail records one failed attempt for key.
func (f *FailureLimiter) Fail(key string) {
	f.get(key).Allow()
}

// Reset forgets key after a successful attempt.
func (f *FailureLimiter) Reset(key string) {
	f.mu.Lock()
	delete(f.limiters, key)
	f.mu.Unlock()
}
