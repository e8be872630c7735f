package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/storevault/pkg/internal/handle"
)

// RegisterHealthCheckRoute 注册健康检查路由.
func RegisterHealthCheckRoute(g *gin.RouterGroup) {
	healthRoutes := g.Group("/healthz")
	{
		healthRoutes.GET("", handle.Live)
		healthRoutes.GET("/ready", handle.Ready)
		healthRoutes.GET("/:component", handle.Component)
	}
}
