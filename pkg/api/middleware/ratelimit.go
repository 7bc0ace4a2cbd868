package middleware

import (
	"net/http"

	"github.com/beaconhq/beacon/pkg/metrics"
	"github.com/beaconhq/beacon/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit returns a middleware that enforces a per-client request budget.
// Requests are keyed on the client IP. When the limiter backend fails the
// request is let through rather than taking the whole API down with it.
func RateLimit(limiter ratelimit.Limiter, backend string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			GetLogger(c, logger).Warn("Rate limit check failed, allowing request",
				zap.Error(err),
				zap.String("client_ip", c.ClientIP()),
			)
			metrics.RateLimitDecisionsTotal.WithLabelValues(backend, "error").Inc()
			c.Next()
			return
		}

		result.SetHeaders(c.Writer)

		if !result.Allowed {
			metrics.RateLimitDecisionsTotal.WithLabelValues(backend, "denied").Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"status":  "error",
				"message": "Rate limit exceeded",
			})
			c.Abort()
			return
		}

		metrics.RateLimitDecisionsTotal.WithLabelValues(backend, "allowed").Inc()
		c.Next()
	}
}
