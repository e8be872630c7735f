package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/middleware"
)

// SchedulerJobs 返回所有维护任务信息.
func SchedulerJobs(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		unavailable(c, "scheduler")
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": sched.GetJobInfos()})
}

// SchedulerRunJob 立即触发一次指定任务，任务异步执行.
func SchedulerRunJob(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		unavailable(c, "scheduler")
		return
	}

	name := c.Param("name")

	if _, err := sched.GetJobInfoByName(name); err != nil {
		fail(c, errs.NotFound(errs.KindJob, name))
		return
	}

	if err := sched.RunNow(name); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job": name, "status": "triggered"})
}
