package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limit is a request rate: Requests per Period.
type Limit struct {
	Requests int
	Period   time.Duration
}

// limiter keeps one token bucket per client key. Buckets hold Requests
// tokens and refill evenly over Period.
type limiter struct {
	limit Limit
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func newLimiter(limit Limit, now func() time.Time) *limiter {
	if limit.Period <= 0 {
		limit.Period = time.Minute
	}
	return &limiter{limit: limit, now: now, buckets: make(map[string]*rate.Limiter)}
}

func (l *limiter) bucket(key string) *rate.Limiter {
	lim, ok := l.buckets[key]
	if !ok {
		every := rate.Limit(float64(l.limit.Requests) / l.limit.Period.Seconds())
		lim = rate.NewLimiter(every, l.limit.Requests)
		l.buckets[key] = lim
	}
	return lim
}

// allow reports whether key may make a request now, and otherwise how long
// it should wait.
func (l *limiter) allow(key string) (bool, time.Duration) {
	if l == nil || l.limit.Requests <= 0 {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	r := l.bucket(key).ReserveN(now, 1)
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return false, wait
	}
	return true, 0
}

// prune drops buckets that have refilled completely.
func (l *limiter) prune() {
	if l == nil {
		return
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, lim := range l.buckets {
		if lim.TokensAt(now) >= float64(lim.Burst()) {
			delete(l.buckets, key)
		}
	}
}
