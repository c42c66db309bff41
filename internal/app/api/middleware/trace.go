package middleware

import (
	"context"

	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxTraceIDLen = 64

// TraceMiddleware stores a trace id in gin.Context and the request context.
// A client supplied X-Request-ID is kept when it is short and printable;
// anything else is replaced by a random UUID.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Request-ID")
		if !validTraceID(traceID) {
			traceID = uuid.New().String()
		}

		c.Set(logctx.TraceIDKey, traceID)
		ctx := context.WithValue(c.Request.Context(), logctx.TraceIDKey, traceID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func validTraceID(id string) bool {
	if id == "" || len(id) > maxTraceIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
