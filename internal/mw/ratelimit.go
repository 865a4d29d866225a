package mw

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// IPRateLimiter stores a rate limiter for each client IP. Limiters of clients that
// stay idle for longer than the expiry are evicted.
type IPRateLimiter struct {
	limiters *cache.Cache
	r        rate.Limit
	b        int
}

// NewIPRateLimiter creates a new IPRateLimiter.
func NewIPRateLimiter(r rate.Limit, b int, idleExpiry time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: cache.New(idleExpiry, 2*idleExpiry),
		r:        r,
		b:        b,
	}
}

// GetLimiter returns the rate limiter for an IP address, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	if v, found := i.limiters.Get(ip); found {
		limiter := v.(*rate.Limiter)
		// Refresh the expiry on every use.
		i.limiters.SetDefault(ip, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(i.r, i.b)
	// Another request from the same IP may have won the race.
	if err := i.limiters.Add(ip, limiter, cache.DefaultExpiration); err != nil {
		if v, found := i.limiters.Get(ip); found {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// RateLimiter is a middleware for IP-based rate limiting.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewIPRateLimiter(r, b, 10*time.Minute)
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"message": "too many requests", "code": "rate_limited"},
			})
			return
		}
		c.Next()
	}
}
