// Package context 拓展上下文功能，将存储资源、存储协调器与追踪信息集成到上下文中，方便在应用程序各处传递和使用.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/storevault/pkg/internal/service"
	"github.com/yeisme/storevault/pkg/internal/storage"
	"github.com/yeisme/storevault/pkg/internal/storage/blob"
	dbc "github.com/yeisme/storevault/pkg/internal/storage/db"
	kvc "github.com/yeisme/storevault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/storevault/pkg/internal/storage/mq"
)

type ContextKey string

const (
	StorageManagerKey ContextKey = "storageManager"
	CoordinatorKey    ContextKey = "storageCoordinator"
)

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, StorageManagerKey, mgr)
}

// GetManager 从 context 中获取 Manager.
func GetManager(ctx context.Context) *storage.Manager {
	if mgr, ok := ctx.Value(StorageManagerKey).(*storage.Manager); ok {
		return mgr
	}

	return nil
}

// WithCoordinator 将存储协调器存储到 context 中.
func WithCoordinator(ctx context.Context, c *service.Coordinator) context.Context {
	return context.WithValue(ctx, CoordinatorKey, c)
}

// GetCoordinator 从 context 中获取存储协调器.
func GetCoordinator(ctx context.Context) *service.Coordinator {
	if c, ok := ctx.Value(CoordinatorKey).(*service.Coordinator); ok {
		return c
	}

	return nil
}

// GetDBClient 从 context 中获取 DB 客户端.
func GetDBClient(ctx context.Context) *dbc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetDBClient()
	}

	return nil
}

// GetBlobStore 从 context 中获取物理存储后端.
func GetBlobStore(ctx context.Context) blob.Store {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetBlobStore()
	}

	return nil
}

// GetMQClient 从 context 中获取 MQ 客户端.
func GetMQClient(ctx context.Context) *mqc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetMQClient()
	}

	return nil
}

// GetKVClient 从 context 中获取 KV 客户端.
func GetKVClient(ctx context.Context) *kvc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetKVClient()
	}

	return nil
}

// WithTraceContext 创建带有追踪上下文的logger.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		return logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return logger
}
