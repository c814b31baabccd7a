package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 5 * time.Minute

type userLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// RateLimiter hands out one token bucket per user. Buckets idle for
// limiterIdleTTL are dropped by a sweep that runs at most once per
// limiterIdleTTL.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*userLimiter
	limit     rate.Limit
	burst     int
	now       func() time.Time
	nextPrune time.Time
}

// NewRateLimiter allows perMinute requests per user with the given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*userLimiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow takes a token from key's bucket.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !now.Before(l.nextPrune) {
		l.pruneLocked(now)
		l.nextPrune = now.Add(limiterIdleTTL)
	}

	ul, ok := l.limiters[key]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = ul
	}
	ul.expires = now.Add(limiterIdleTTL)
	return ul.limiter.AllowN(now, 1)
}

func (l *RateLimiter) pruneLocked(now time.Time) {
	for k, ul := range l.limiters {
		if now.After(ul.expires) {
			delete(l.limiters, k)
		}
	}
}

// Middleware limits authenticated users, falling back to the client IP.
// Must run AFTER AuthMiddleware.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(ContextUserIDKey)
		if key == "" {
			key = c.ClientIP()
		}
		if !l.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many attempts. Please wait a moment and try again.",
			})
			return
		}
		c.Next()
	}
}
