package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-qr/utils"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limit rate.Limit
	burst int
	ips   map[string]*ipLimiter
	mu    sync.Mutex
	now   func() time.Time

	// lastSweep is when idle buckets were last evicted.
	lastSweep time.Time
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// idleAfter is how long an IP may stay silent before its bucket is dropped.
const idleAfter = 10 * time.Minute

// NewRateLimiter allows perMinute requests per IP with bursts of the same size.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		limit: rate.Every(time.Minute / time.Duration(perMinute)),
		burst: perMinute,
		ips:   make(map[string]*ipLimiter),
		now:   time.Now,
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= idleAfter {
		for k, v := range rl.ips {
			if now.Sub(v.lastSeen) > idleAfter {
				delete(rl.ips, k)
			}
		}
		rl.lastSweep = now
	}

	l, ok := rl.ips[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.ips[ip] = l
	}
	l.lastSeen = now
	return l.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			utils.RespondReason(c, http.StatusTooManyRequests, "rate_limited")
			return
		}
		c.Next()
	}
}
