// internal/middleware/rate_limit.go
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	visitors map[string]*visitor
	mtx      sync.Mutex
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    b,
	}

	// Clean up old visitors every minute
	go rl.cleanupVisitors()

	return rl
}

func (rl *RateLimiter) cleanupVisitors() {
	for {
		time.Sleep(time.Minute)
		rl.mtx.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(rl.visitors, ip)
			}
		}
		rl.mtx.Unlock()
	}
}

func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rl.rate, rl.burst)
		rl.visitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := rl.getVisitor(ip)

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// Per-route limiters, keyed by client IP
var (
	validateLimiter  = NewRateLimiter(rate.Every(time.Minute/30), 30)    // 30 validations per minute
	heartbeatLimiter = NewRateLimiter(rate.Every(time.Minute/60), 60)    // 60 heartbeats per minute
	checkIPLimiter   = NewRateLimiter(rate.Every(time.Minute/120), 120)  // 120 session checks per minute
	repoLimiter      = NewRateLimiter(rate.Every(time.Minute/60), 60)    // 60 repo fetches per minute
	trackingLimiter  = NewRateLimiter(rate.Every(time.Minute/60), 60)    // 60 tracking events per minute
	loginLimiter     = NewRateLimiter(rate.Every(5*time.Minute/20), 20)  // 20 login attempts per 5 minutes
)

func ValidateRateLimit() gin.HandlerFunc {
	return validateLimiter.Middleware()
}

func HeartbeatRateLimit() gin.HandlerFunc {
	return heartbeatLimiter.Middleware()
}

func CheckIPRateLimit() gin.HandlerFunc {
	return checkIPLimiter.Middleware()
}

func RepoRateLimit() gin.HandlerFunc {
	return repoLimiter.Middleware()
}

func TrackingRateLimit() gin.HandlerFunc {
	return trackingLimiter.Middleware()
}

func LoginRateLimit() gin.HandlerFunc {
	return loginLimiter.Middleware()
}
