package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/storevault/pkg/context"
	"github.com/yeisme/storevault/pkg/log"
)

// GinLoggerMiddleware 使用zerolog记录Gin请求日志的中间件. 5xx 记为 error，4xx 记为 warn，
// /healthz 与 /metrics 的成功请求只在 debug 级别输出.
func GinLoggerMiddleware() gin.HandlerFunc {
	base := log.Component("http")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		logger := context.WithTraceContext(c.Request.Context(), *base)
		status := c.Writer.Status()

		var event *zerolog.Event

		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		case quiet(c.FullPath()):
			event = logger.Debug()
		default:
			event = logger.Info()
		}

		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.String())
		}

		event.
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// quiet 判断是否为探活类高频路由.
func quiet(route string) bool {
	return route == "/metrics" || strings.HasPrefix(route, "/healthz")
}

// RecoveryMiddleware 拦截 panic，记录日志并返回 500.
func RecoveryMiddleware() gin.HandlerFunc {
	logger := log.Component("http")

	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Error().
			Interface("panic", recovered).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("handler panicked")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}
