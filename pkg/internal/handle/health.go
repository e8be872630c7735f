package handle

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/storevault/pkg/context"
)

// ComponentHealth 单个资源的健康状态.
type ComponentHealth struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Live 存活检查，进程能处理请求即返回 ok.
func Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready 就绪检查，逐个检查已启用的存储资源，任一失败返回 503.
func Ready(c *gin.Context) {
	results, ok := check(c)
	if results == nil {
		return
	}

	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{"components": results})
}

// Component 检查单个资源，例如 /healthz/db.
func Component(c *gin.Context) {
	name := c.Param("component")

	results, _ := check(c)
	if results == nil {
		return
	}

	for _, r := range results {
		if r.Component != name {
			continue
		}

		status := http.StatusOK
		if r.Status != "ok" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, r)

		return
	}

	c.JSON(http.StatusNotFound, ComponentHealth{Component: name, Status: "disabled"})
}

// check 执行全部检查，结果按资源名排序. Manager 未注入时写入 503 并返回 nil.
func check(c *gin.Context) ([]ComponentHealth, bool) {
	mgr := ctxPkg.GetManager(c.Request.Context())
	if mgr == nil {
		unavailable(c, "storage manager")
		return nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	checks := mgr.HealthCheck(ctx)
	results := make([]ComponentHealth, 0, len(checks))
	healthy := true

	for name, err := range checks {
		h := ComponentHealth{Component: name, Status: "ok"}
		if err != nil {
			h.Status = "unhealthy"
			h.Error = err.Error()
			healthy = false
		}

		results = append(results, h)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Component < results[j].Component })

	return results, healthy
}
