package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/storevault/pkg/internal/handle"
	"github.com/yeisme/storevault/pkg/middleware"
	"github.com/yeisme/storevault/pkg/scheduler"
)

// RegisterSchedulerRoutes 注册维护任务相关路由.
func RegisterSchedulerRoutes(g *gin.RouterGroup, sched *scheduler.Scheduler) {
	jobs := g.Group("/jobs", middleware.SchedulerMiddleware(sched))
	{
		jobs.GET("", handle.SchedulerJobs)
		jobs.POST("/:name/run", handle.SchedulerRunJob)
	}
}
