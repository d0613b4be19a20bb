package strains

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"terptracker/internal/cache"
)

// rateLimitExempt paths are never counted.
var rateLimitExempt = map[string]bool{
	"/":            true,
	"/health":      true,
	"/api/version": true,
}

// RateLimitMiddleware enforces a fixed-window request limit per client IP.
func RateLimitMiddleware(limiter cache.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || rateLimitExempt[c.Request.URL.Path] {
			c.Next()
			return
		}

		allowed, remaining := limiter.Allow(c.Request.Context(), c.ClientIP())
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
				"code":  "rate_limited",
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Next()
	}
}
