package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/charlesng35/signup/pkg/errors"
	"github.com/charlesng35/signup/pkg/logger"
	"github.com/charlesng35/signup/pkg/response"
)

// RateLimit limits requests per (client IP, route) within a fixed window. Store failures
// let the request through.
func RateLimit(store RateStore, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := c.ClientIP() + "|" + c.Request.Method + "|" + route

		count, ttl, err := store.Increment(c.Request.Context(), key, window)
		if err != nil {
			logger.WithModule("ratelimit").Warn("rate store unavailable", zap.Error(err))
			c.Next()
			return
		}

		reset := int(math.Ceil(ttl.Seconds()))
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(0, maxRequests-count)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(reset))

		if count > maxRequests {
			c.Header("Retry-After", strconv.Itoa(max(1, reset)))
			response.Error(c, appErrors.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()
	}
}
