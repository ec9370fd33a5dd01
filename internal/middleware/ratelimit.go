package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vbg-space/core/internal/pkg/metrics"
	"github.com/vbg-space/core/internal/pkg/ratelimit"
	"github.com/vbg-space/core/internal/pkg/response"
	"go.uber.org/zap"
)

// RateLimit enforces a fixed-window policy per client IP. Limiter errors
// let the request through.
func RateLimit(limiter ratelimit.Limiter, policy ratelimit.Policy, m *metrics.Metrics, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		res, err := limiter.Hit(c.Request.Context(), policy, ip)
		if err != nil {
			if log != nil {
				log.Warn("rate limiter unavailable", zap.String("policy", policy.Name), zap.Error(err))
			}
			c.Next()
			return
		}

		resetSeconds := int(math.Ceil(res.ResetIn.Seconds()))
		if resetSeconds < 0 {
			resetSeconds = 0
		}
		c.Header("RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(resetSeconds))
		c.Header("RateLimit-Policy", strconv.Itoa(policy.Limit)+";w="+strconv.Itoa(int(policy.Window.Seconds())))

		if !res.Allowed {
			m.RateLimited(policy.Name)
			c.Header("Retry-After", strconv.Itoa(resetSeconds))
			response.TooManyRequests(c, policy.Message)
			return
		}
		c.Next()
	}
}
