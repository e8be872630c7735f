// Package router 管理运维 HTTP 服务的路由. 运维服务只暴露健康检查、指标、pprof、
// 容量报告与维护任务，不承载文件读写.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/handle"
	"github.com/yeisme/storevault/pkg/internal/service"
	"github.com/yeisme/storevault/pkg/internal/storage"
	"github.com/yeisme/storevault/pkg/metrics"
	"github.com/yeisme/storevault/pkg/middleware"
	"github.com/yeisme/storevault/pkg/scheduler"
)

// Deps 路由依赖的运行时资源，Scheduler 可以为 nil.
type Deps struct {
	Manager     *storage.Manager
	Coordinator *service.Coordinator
	Scheduler   *scheduler.Scheduler
}

// New 创建运维引擎并注册全部路由.
//
//	GET  /healthz                 -> Live
//	GET  /healthz/ready           -> Ready
//	GET  /healthz/:component      -> Component
//	GET  /metrics
//	GET  /debug/pprof/*name       (server.pprof)
//	GET  /api/v1/capacity         -> Capacity
//	GET  /api/v1/jobs             -> SchedulerJobs
//	POST /api/v1/jobs/:name/run   -> SchedulerRunJob
func New(cfg *configs.AppConfig, deps Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.Common(cfg.Server)...)
	engine.Use(middleware.StorageMiddleware(deps.Manager, deps.Coordinator))

	RegisterHealthCheckRoute(engine.Group("/"))
	metrics.StartMetricsServer(cfg.Metrics, cfg.Server.Pprof, engine)

	v1 := engine.Group("/api/v1")
	v1.GET("/capacity", handle.Capacity)
	RegisterSchedulerRoutes(v1, deps.Scheduler)

	return engine
}
