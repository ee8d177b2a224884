package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the request trace identifier
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the gin context key the identifier is stored under
	CorrelationIDKey = "correlation_id"
)

// CorrelationID tags each request with a trace identifier. Callers may
// supply their own; otherwise one is minted. The identifier rides on the
// response header and on every ledger entry the request creates.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Header(CorrelationIDHeader, id)
		c.Set(CorrelationIDKey, id)

		c.Next()
	}
}

// GetCorrelationID returns the request's trace identifier, or "" when the
// CorrelationID middleware did not run
func GetCorrelationID(c *gin.Context) string {
	if v, ok := c.Get(CorrelationIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
