package logger

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestIDHeader is the HTTP header for request ID
const RequestIDHeader = "X-Request-ID"

// GinMiddleware is a Gin middleware that adds request ID to context
// and logs request start/end.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = GenerateRequestID()
		}

		c.Header(RequestIDHeader, requestID)

		ctx := WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		Debug(ctx).
			Str("method", method).
			Str("path", path).
			Str("ip", c.ClientIP()).
			Msg("Request started")

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		event := Info(ctx)
		if status >= http.StatusInternalServerError {
			event = Error(ctx)
		} else if status >= http.StatusBadRequest {
			event = Warn(ctx)
		}

		event.
			Str("method", method).
			Str("path", path).
			Int("status", status).
			Dur("duration", duration).
			Msg("Request completed")
	}
}

// WebSocketContext creates a request-scoped context for WebSocket upgrades
func WebSocketContext(r *http.Request) context.Context {
	return WithRequestID(r.Context(), GenerateRequestID())
}
