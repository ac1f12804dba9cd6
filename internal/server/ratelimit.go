package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterSet keeps one token bucket per key (a client IP or a user ID).
// Buckets idle for longer than ttl are evicted so unlock probes cannot grow
// the map without bound.
type limiterSet struct {
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	ttl     time.Duration
	buckets map[string]*limiterBucket
}

type limiterBucket struct {
	lim      *rate.Limiter
	lastUsed time.Time
}

func newLimiterSet(r rate.Limit, burst int, ttl time.Duration) *limiterSet {
	return &limiterSet{
		rate:    r,
		burst:   burst,
		ttl:     ttl,
		buckets: make(map[string]*limiterBucket),
	}
}

func (ls *limiterSet) allow(key string) bool {
	now := time.Now()
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.evictIdle(now)

	b, ok := ls.buckets[key]
	if !ok {
		b = &limiterBucket{lim: rate.NewLimiter(ls.rate, ls.burst)}
		ls.buckets[key] = b
	}
	b.lastUsed = now
	return b.lim.Allow()
}

// evictIdle runs under ls.mu.
func (ls *limiterSet) evictIdle(now time.Time) {
	for key, b := range ls.buckets {
		if now.Sub(b.lastUsed) > ls.ttl {
			delete(ls.buckets, key)
		}
	}
}

// getClientIP trusts the first X-Forwarded-For hop when present and falls
// back to the socket address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
