package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/pkg/logger"
)

type clientBucket struct {
	count       int
	windowStart time.Time
}

// RateLimiter counts requests per client within a fixed window.
// Each client gets its own window, so a burst from one client does
// not reset the clock for everyone.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	rate    int
	window  time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*clientBucket),
		rate:    rate,
		window:  window,
	}
}

// Allow records a request for the client and reports whether it is
// still within the limit.
func (l *RateLimiter) Allow(client string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[client]
	if !ok || now.Sub(bucket.windowStart) > l.window {
		l.buckets[client] = &clientBucket{count: 1, windowStart: now}
		return true
	}
	if bucket.count >= l.rate {
		return false
	}
	bucket.count++
	return true
}

// RateLimit middleware limits requests per client IP
func RateLimit(rate int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(rate, window)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !limiter.Allow(clientIP, time.Now()) {
			logger.Warn(c.Request.Context(), "rate limit exceeded",
				"client_ip", clientIP,
				"path", c.Request.URL.Path,
			)

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
