package middleware

import (
	"net/http"

	"github.com/beaconhq/beacon/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandling returns a middleware that converts panics into a 500
// response instead of tearing down the connection.
func ErrorHandling(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log := GetLogger(c, logger)

				log.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				metrics.PanicRecoveriesTotal.WithLabelValues("api").Inc()

				c.JSON(http.StatusInternalServerError, gin.H{
					"status":  "error",
					"message": "Internal server error",
				})

				c.Abort()
			}
		}()

		c.Next()
	}
}
