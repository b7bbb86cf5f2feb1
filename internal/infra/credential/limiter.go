package credential

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// keyLimiter is a token bucket per key with the time it was last used.
type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// loginLimiter throttles sign-in attempts per email.
type loginLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*keyLimiter
}

func newLoginLimiter(perSecond float64, burst int) *loginLimiter {
	return &loginLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*keyLimiter),
	}
}

// Allow consumes one attempt for key at now.
func (l *loginLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[key]
	if !ok {
		entry = &keyLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastAccess = now

	return entry.limiter.AllowN(now, 1)
}

// Prune forgets keys idle for longer than idle and returns how many were dropped.
func (l *loginLimiter) Prune(now time.Time, idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := 0
	for key, entry := range l.limiters {
		if now.Sub(entry.lastAccess) > idle {
			delete(l.limiters, key)
			dropped++
		}
	}

	return dropped
}
