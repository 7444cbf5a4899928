package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderKey carries the correlation ID on requests and responses.
const HeaderKey = "X-Request-ID"

const contextKey = "request_id"

// Middleware reuses an inbound X-Request-ID or mints a new one.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(HeaderKey)
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}

		c.Set(contextKey, reqID)
		c.Writer.Header().Set(HeaderKey, reqID)

		c.Next()
	}
}

// Value returns the request ID stored in the Gin context.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
