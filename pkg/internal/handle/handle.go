// Package handle 提供运维 HTTP 服务的请求处理器：健康检查、容量报告与维护任务.
package handle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/storevault/pkg/internal/errs"
)

// timeout 单个运维请求访问后端资源的超时.
const timeout = 2 * time.Second

// statusOf 将领域错误映射为 HTTP 状态码.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrAlreadyExists), errors.Is(err, errs.ErrNotEmpty):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail 记录错误并返回 JSON 错误响应.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusOf(err), gin.H{"error": err.Error()})
}

func unavailable(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": what + " not initialized"})
}
