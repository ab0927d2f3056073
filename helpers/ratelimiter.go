package helpers

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter is a per-origin token bucket. On the redirect route it bounds
// how hard a single client can probe ids, which keeps even uncached
// negative lookups from hammering the store.
type RateLimiter struct {
	rate         rate.Limit
	burst        int
	cleanupAfter time.Duration
	clients      sync.Map
	once         sync.Once
}

type clientInfo struct {
	limiter  *rate.Limiter
	lastSeen int64
}

func NewRateLimiter(max int, per time.Duration) *RateLimiter {
	rl := &RateLimiter{
		rate:         rate.Limit(float64(max) / per.Seconds()),
		burst:        max,
		cleanupAfter: 3 * time.Minute,
	}
	rl.once.Do(func() {
		go rl.cleanupLoop()
	})
	return rl
}

func (rl *RateLimiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		info := rl.getOrCreate(ClientOrigin(c))
		atomic.StoreInt64(&info.lastSeen, time.Now().UnixNano())

		remaining := int(info.limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
		c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !info.limiter.Allow() {
			c.Response().Header().Set("Retry-After", "1")
			return JSONError(c, http.StatusTooManyRequests, "rate limit exceeded")
		}
		return next(c)
	}
}

func (rl *RateLimiter) getOrCreate(key string) *clientInfo {
	if v, ok := rl.clients.Load(key); ok {
		return v.(*clientInfo)
	}
	info := &clientInfo{
		limiter:  rate.NewLimiter(rl.rate, rl.burst),
		lastSeen: time.Now().UnixNano(),
	}
	actual, loaded := rl.clients.LoadOrStore(key, info)
	if loaded {
		return actual.(*clientInfo)
	}
	return info
}

func (rl *RateLimiter) cleanupLoop() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for range t.C {
		cutoff := time.Now().Add(-rl.cleanupAfter).UnixNano()
		rl.clients.Range(func(k, v any) bool {
			if atomic.LoadInt64(&v.(*clientInfo).lastSeen) < cutoff {
				rl.clients.Delete(k)
			}
			return true
		})
	}
}
