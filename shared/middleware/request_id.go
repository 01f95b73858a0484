package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceIDKey is the gin context key holding the per-request trace id.
const TraceIDKey = "traceID"

// RequestIDHeader is echoed back to the client on every response.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request a trace id, reusing the client-provided
// X-Request-ID when present. The id ends up in the error envelope and in
// request logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(RequestIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(TraceIDKey, traceID)
		c.Writer.Header().Set(RequestIDHeader, traceID)
		c.Next()
	}
}

// TraceID returns the request's trace id, or "" outside the middleware.
func TraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}
