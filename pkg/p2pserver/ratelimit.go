package p2pserver

import (
	"sync"
	"time"
)

// RateLimiter is a per-IP sliding-window limiter: at most limit requests
// from one IP in any trailing window-length interval.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewRateLimiter builds a limiter allowing limit requests per window per IP.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
	}
}

// Allow reports whether a request from ip is within the limit, recording
// it if so.
func (r *RateLimiter) Allow(ip string) bool {
	now := time.Now()
	cutoff := now.Add(-r.window)

	r.mu.Lock()
	defer r.mu.Unlock()

	times := r.hits[ip]
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= r.limit {
		r.hits[ip] = kept
		return false
	}
	r.hits[ip] = append(kept, now)
	return true
}

// TrackedIPs reports how many distinct IPs currently have an entry in the
// limiter's table, whether or not they're presently throttled.
func (r *RateLimiter) TrackedIPs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hits)
}

// Compact drops per-IP entries with no hits inside the window, bounding
// the table's memory under a long-running process. Intended to run on a
// periodic ticker (every 10s per spec.md §5).
func (r *RateLimiter) Compact() {
	cutoff := time.Now().Add(-r.window)

	r.mu.Lock()
	defer r.mu.Unlock()

	for ip, times := range r.hits {
		kept := times[:0]
		for _, t := range times {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(r.hits, ip)
		} else {
			r.hits[ip] = kept
		}
	}
}
