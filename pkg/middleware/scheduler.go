package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/storevault/pkg/scheduler"
)

const schedulerKey = "scheduler"

// SchedulerMiddleware 将scheduler注入到 gin.Context 中.
func SchedulerMiddleware(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(schedulerKey, sched)
		c.Next()
	}
}

// GetScheduler 从 gin.Context 中获取scheduler，未注入时返回 nil.
func GetScheduler(c *gin.Context) *scheduler.Scheduler {
	if v, ok := c.Get(schedulerKey); ok {
		if sched, ok := v.(*scheduler.Scheduler); ok {
			return sched
		}
	}

	return nil
}
