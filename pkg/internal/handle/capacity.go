package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/storevault/pkg/context"
)

// Capacity 返回物理存储容量与元数据统计.
func Capacity(c *gin.Context) {
	coord := ctxPkg.GetCoordinator(c.Request.Context())
	if coord == nil {
		unavailable(c, "storage coordinator")
		return
	}

	info, err := coord.Capacity(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}
