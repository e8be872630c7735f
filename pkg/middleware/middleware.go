// Package middleware 提供运维 HTTP 服务使用的 gin 中间件.
package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/storevault/pkg/configs"
)

// Common 返回运维服务的公共中间件链，顺序：恢复、追踪、日志、指标、压缩.
func Common(cfg configs.ServerConfig) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{
		RecoveryMiddleware(),
		TracingMiddleware(),
		GinLoggerMiddleware(),
		PrometheusMiddleware(),
	}

	if cfg.Gzip {
		// pprof 的 profile 与 trace 本身是二进制流
		chain = append(chain, gzip.Gzip(gzip.DefaultCompression,
			gzip.WithExcludedPaths([]string{"/debug/pprof"})))
	}

	return chain
}
