package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fundflow-core/internal/ratelimit"
)

// EntityFunc extracts the rate-limited entity from the request, typically
// an account ID path parameter or the client IP
type EntityFunc func(c *gin.Context) string

// EntityFromClientIP keys the limit on the caller's IP
func EntityFromClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// EntityFromParam keys the limit on a path parameter
func EntityFromParam(name string) EntityFunc {
	return func(c *gin.Context) string {
		return c.Param(name)
	}
}

// RateLimit enforces the named limit before the handler runs. Denied
// requests get 429 with a Retry-After header; how counter-store failures
// resolve is decided inside the limiter by the action's context.
func RateLimit(logger *slog.Logger, limiter *ratelimit.Limiter, rlCtx ratelimit.Context, name string, entityFn EntityFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		action := ratelimit.Action{
			Context: rlCtx,
			Name:    name,
			Entity:  entityFn(c),
		}

		result, err := limiter.Check(c.Request.Context(), action)
		if err != nil {
			logger.Error("Rate limit check failed", "action", name, "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMIT_UNAVAILABLE",
					"message": "Could not evaluate rate limit",
				},
			})
			return
		}
		if !result.Allowed {
			retryAfter := result.RetryAfter
			if retryAfter <= 0 {
				retryAfter = time.Second
			}
			logger.Warn("Request rate limited",
				"context", string(rlCtx),
				"action", name,
				"entity", action.Entity,
				"reason", result.Reason,
			)
			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds()+0.5)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMITED",
					"message": "Too many requests, retry later",
				},
				"correlation_id": GetCorrelationID(c),
			})
			return
		}

		c.Next()
	}
}
