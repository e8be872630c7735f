package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/storevault/pkg/context"
	"github.com/yeisme/storevault/pkg/internal/service"
	"github.com/yeisme/storevault/pkg/internal/storage"
)

// StorageMiddleware 将存储资源与存储协调器注入请求上下文.
func StorageMiddleware(manager *storage.Manager, coord *service.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithStorageManager(c.Request.Context(), manager)
		ctx = context.WithCoordinator(ctx, coord)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
