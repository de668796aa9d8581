package api

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// visitor tracks request count for a single IP within a time window.
type visitor struct {
	count    atomic.Int64
	lastSeen atomic.Int64 // unix seconds
}

// RateLimiter implements per-IP rate limiting over a rolling window using a
// sync.Map so hot-path lookups take no global lock.
type RateLimiter struct {
	visitors   sync.Map // map[string]*visitor
	limit      int64
	windowSecs int64
}

// NewRateLimiter creates a rate limiter with the given requests-per-minute
// limit. It starts a background goroutine that evicts stale entries.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		limit:      int64(requestsPerMinute),
		windowSecs: 60,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) allow(ip string) bool {
	now := time.Now().Unix()

	val, loaded := rl.visitors.LoadOrStore(ip, &visitor{})
	v := val.(*visitor)

	if !loaded || now-v.lastSeen.Load() >= rl.windowSecs {
		v.count.Store(1)
		v.lastSeen.Store(now)
		return true
	}

	c := v.count.Add(1)
	v.lastSeen.Store(now)
	return c <= rl.limit
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Unix() - 2*rl.windowSecs
		rl.visitors.Range(func(key, val any) bool {
			if val.(*visitor).lastSeen.Load() < cutoff {
				rl.visitors.Delete(key)
			}
			return true
		})
	}
}

// clientIP extracts the client IP from X-Forwarded-For or RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(ip)
		}
		return strings.TrimSpace(xff)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

// RateLimitMiddleware limits requests per IP to requestsPerMinute within a
// rolling 60-second window.
func RateLimitMiddleware(requestsPerMinute int) func(http.Handler) http.Handler {
	rl := NewRateLimiter(requestsPerMinute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(clientIP(r)) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
