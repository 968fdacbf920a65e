package warden

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter hands every user their own token bucket.
type rateLimiter struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	users map[string]*userLimiter
	now   func() time.Time
}

type userLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	return &rateLimiter{
		limit: rate.Limit(perSecond),
		burst: burst,
		users: make(map[string]*userLimiter),
		now:   time.Now,
	}
}

func (r *rateLimiter) Allow(uid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	u, ok := r.users[uid]
	if !ok {
		u = &userLimiter{lim: rate.NewLimiter(r.limit, r.burst)}
		r.users[uid] = u
	}
	u.seen = now
	return u.lim.AllowN(now, 1)
}

// prune drops users idle for longer than idle and returns how many.
func (r *rateLimiter) prune(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	n := 0
	for uid, u := range r.users {
		if u.seen.Before(cutoff) {
			delete(r.users, uid)
			n++
		}
	}
	return n
}
