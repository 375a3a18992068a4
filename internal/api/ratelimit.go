package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	rateLimiterCleanupInterval = 5 * time.Minute
	rateLimiterStaleThreshold  = 10 * time.Minute

	// ipAggregateFactor scales the per-IP aggregate bucket charged by
	// authenticated traffic. One address may carry several callers behind
	// NAT, so its combined budget is larger than a single caller's, but
	// still finite: rotating bogus credentials drains this bucket instead
	// of minting a fresh one per header value.
	ipAggregateFactor = 10
)

// rateLimiter implements per-key rate limiting using golang.org/x/time/rate.
// The middleware keys authenticated requests on their Authorization header
// plus a scaled per-IP aggregate, and unauthenticated ones on client IP.
// Cleanup of stale entries happens inline during allow() calls.
type rateLimiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	limit       rate.Limit
	burst       int
	lastCleanup time.Time
}

// visitor holds a rate limiter and last-seen time for a single key.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newRateLimiter creates a rate limiter.
// r: tokens refilled per second. burst: maximum tokens (and initial allowance).
func newRateLimiter(r float64, burst int) *rateLimiter {
	return &rateLimiter{
		visitors:    make(map[string]*visitor),
		limit:       rate.Limit(r),
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

// allow checks if a request under the given key is allowed.
// Returns false if the key has exhausted its tokens.
func (rl *rateLimiter) allow(key string) bool {
	return rl.allowScaled(key, 1)
}

// allowScaled is allow with the key's rate and burst multiplied by factor.
// The factor only matters on first sight of a key, so callers must use a
// consistent factor per key prefix.
func (rl *rateLimiter) allowScaled(key string, factor int) bool {
	if factor < 1 {
		factor = 1
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	// Periodic cleanup of stale entries
	if now.Sub(rl.lastCleanup) > rateLimiterCleanupInterval {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rateLimiterStaleThreshold {
				delete(rl.visitors, k)
			}
		}
		rl.lastCleanup = now
	}

	v, exists := rl.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(rl.limit*rate.Limit(factor), rl.burst*factor)
		rl.visitors[key] = &visitor{
			limiter:  limiter,
			lastSeen: now,
		}
		limiter.Allow()
		return true
	}

	v.lastSeen = now
	return v.limiter.Allow()
}

// rateLimitMiddleware returns middleware that limits requests per caller.
// The auth middleware runs inside this one, so the user ID is not in
// context yet; the raw bearer token's subject would cost a parse per
// request, so authenticated traffic keys on the whole Authorization header
// instead. That header is attacker-chosen, so such requests are also
// charged against a scaled per-IP aggregate bucket, checked first so a
// rotation flood cannot grow the visitors map past its own budget.
// Unauthenticated requests key on client IP alone.
func rateLimitMiddleware(rl *rateLimiter, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustProxy)
			var allowed bool
			if authz := r.Header.Get("Authorization"); authz != "" {
				allowed = rl.allowScaled("agg:"+ip, ipAggregateFactor) && rl.allow("auth:"+authz)
			} else {
				allowed = rl.allow("ip:" + ip)
			}
			if !allowed {
				logger.Warn("rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
					"method", r.Method,
				)
				w.Header().Set("Retry-After", "1")
				WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP from the request.
//
// When trustProxy is true, checks X-Real-IP first (set by nginx/HAProxy),
// then X-Forwarded-For (first IP). Header values are validated with
// net.ParseIP to prevent injection of non-IP strings into limiter keys.
//
// When trustProxy is false, only uses RemoteAddr (safe default for direct
// exposure).
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
				return ip.String()
			}
		}

		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			raw := xff
			if first, _, ok := strings.Cut(xff, ","); ok {
				raw = first
			}
			if ip := net.ParseIP(strings.TrimSpace(raw)); ip != nil {
				return ip.String()
			}
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
