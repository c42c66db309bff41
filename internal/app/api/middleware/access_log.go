package middleware

import (
	"time"

	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/fatflowers/entitlement/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccessLogMiddleware writes one line per request with the request-scoped
// logger attached by RequestLoggerMiddleware. Failed requests also carry
// the envelope code and denial reason left by the handler.
func AccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l, ok := c.Get(logctx.LoggerKey)
		if !ok {
			return
		}
		log, ok := l.(*zap.SugaredLogger)
		if !ok || log == nil {
			return
		}
		fields := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if code, ok := c.Get(response.CodeContextKey); ok {
			fields = append(fields, "code", code, "reason", c.GetString(response.ReasonContextKey))
		}
		log.Infow("http_access", fields...)
	}
}
