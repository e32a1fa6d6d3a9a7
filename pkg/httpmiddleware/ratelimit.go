package httpmiddleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the maximum number of requests allowed per window.
	Max int
	// Window is the duration of each sliding window.
	Window time.Duration
	// KeyFunc extracts the rate limit key from a request. When nil the
	// client IP address is used.
	KeyFunc func(*http.Request) string
}

// entry tracks request counts across two adjacent windows for the sliding
// window algorithm.
type entry struct {
	prevCount float64
	prevStart time.Time
	currCount float64
	currStart time.Time
}

type rateLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	entries map[string]*entry
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	return &rateLimiter{
		cfg:     cfg,
		entries: make(map[string]*entry),
	}
}

// allow reports whether the request identified by key is within the limit,
// along with the remaining budget and the window reset time.
func (rl *rateLimiter) allow(key string, now time.Time) (remaining int, resetAt time.Time, allowed bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.entries[key]
	if !ok {
		e = &entry{currStart: now}
		rl.entries[key] = e
	}

	// Rotate when the current window has elapsed.
	if now.Sub(e.currStart) >= rl.cfg.Window {
		e.prevCount = e.currCount
		e.prevStart = e.currStart
		e.currCount = 0
		e.currStart = now.Truncate(rl.cfg.Window)
		if now.Sub(e.prevStart) >= 2*rl.cfg.Window {
			e.prevCount = 0
		}
	}

	// Weight the previous window by how much of it still overlaps the
	// sliding window ending now.
	elapsed := now.Sub(e.currStart)
	overlapRatio := 1.0 - elapsed.Seconds()/rl.cfg.Window.Seconds()
	if overlapRatio < 0 {
		overlapRatio = 0
	}
	effectiveCount := e.prevCount*overlapRatio + e.currCount
	resetAt = e.currStart.Add(rl.cfg.Window)

	if effectiveCount >= float64(rl.cfg.Max) {
		return 0, resetAt, false
	}

	e.currCount++
	effectiveCount++

	remaining = int(float64(rl.cfg.Max) - effectiveCount)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, resetAt, true
}

// cleanup removes entries whose windows have fully expired.
func (rl *rateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, e := range rl.entries {
		if now.Sub(e.currStart) >= 2*rl.cfg.Window {
			delete(rl.entries, key)
		}
	}
}

func (rl *rateLimiter) startCleanup(ctx context.Context) {
	interval := 2 * rl.cfg.Window
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.cleanup(now)
			}
		}
	}()
}

// RateLimit returns a middleware enforcing a per-key sliding window limit.
// Exceeding the limit yields 429 Too Many Requests with a JSON body. Every
// response carries X-RateLimit-Limit, X-RateLimit-Remaining, and
// X-RateLimit-Reset headers.
//
// This variant never evicts idle entries. Use RateLimitWithCleanup in
// long-running servers.
func RateLimit(cfg RateLimitConfig) Middleware {
	return rateLimitMiddleware(newRateLimiter(cfg))
}

// RateLimitWithCleanup is like RateLimit but additionally runs a background
// goroutine that evicts expired entries every 2x the window duration until
// ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	rl.startCleanup(ctx)
	return rateLimitMiddleware(rl)
}

func rateLimitMiddleware(rl *rateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.cfg.KeyFunc(r)
			now := time.Now()

			remaining, resetAt, allowed := rl.allow(key, now)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				retryAfter := time.Until(resetAt)
				if retryAfter < 0 {
					retryAfter = 0
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    429,
					"message": "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP from the request, checking X-Forwarded-For
// first, then X-Real-IP, then falling back to RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// May be a comma-separated chain; the first hop is the client.
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
