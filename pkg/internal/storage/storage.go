// Package storage 聚合外部存储资源：元数据库、物理存储后端、键值存储与消息队列.
//
// Example:
//
//	mgr, err := storage.New(ctx, &cfg)
//	if err != nil {
//		return err
//	}
//	defer mgr.Close()
//
//	dbClient := mgr.GetDBClient()
//	blobs := mgr.GetBlobStore()
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/catalog"
	"github.com/yeisme/storevault/pkg/internal/storage/blob"
	dbc "github.com/yeisme/storevault/pkg/internal/storage/db"
	kvc "github.com/yeisme/storevault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/storevault/pkg/internal/storage/mq"
	nlog "github.com/yeisme/storevault/pkg/log"
)

// Manager 聚合所有存储资源. KV 与 MQ 只在缓存、事件开启时创建，可能为 nil.
type Manager struct {
	DB   *dbc.Client
	Blob blob.Store
	KV   *kvc.Client
	MQ   *mqc.Client
}

// Option 控制 New 创建哪些资源.
type Option func(*options)

type options struct {
	skipMQ      bool
	skipKV      bool
	skipMigrate bool
}

// WithoutMQ 不连接消息队列，命令行工具使用.
func WithoutMQ() Option { return func(o *options) { o.skipMQ = true } }

// WithoutKV 不连接键值存储.
func WithoutKV() Option { return func(o *options) { o.skipKV = true } }

// WithoutMigrate 不执行元数据表迁移.
func WithoutMigrate() Option { return func(o *options) { o.skipMigrate = true } }

// New 按配置创建全部存储资源，任一资源失败时关闭已创建的资源.
func New(ctx context.Context, cfg *configs.AppConfig, opts ...Option) (m *Manager, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	m = &Manager{}

	defer func() {
		if err != nil {
			_ = m.Close()
			m = nil
		}
	}()

	if m.DB, err = dbc.New(ctx, &cfg.DB, cfg.Metrics.Enabled); err != nil {
		return nil, err
	}

	if !o.skipMigrate {
		if err = catalog.Migrate(ctx, m.DB.DB); err != nil {
			return nil, err
		}
	}

	if m.Blob, err = blob.New(ctx, cfg); err != nil {
		return nil, err
	}

	if cfg.Cache.Enabled && !o.skipKV {
		if m.KV, err = kvc.New(ctx, &cfg.KV); err != nil {
			return nil, err
		}
	}

	if cfg.Events.Enabled && !o.skipMQ {
		if m.MQ, err = mqc.New(ctx, &cfg.MQ, cfg.Metrics.Enabled); err != nil {
			return nil, err
		}
	}

	nlog.Logger().Info().
		Str("db", string(cfg.DB.Type)).
		Str("blob", string(m.Blob.Backend())).
		Bool("kv", m.KV != nil).
		Bool("mq", m.MQ != nil).
		Msg("storage manager initialized")

	return m, nil
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client { return m.DB }

// GetBlobStore 获取物理存储后端.
func (m *Manager) GetBlobStore() blob.Store { return m.Blob }

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client { return m.KV }

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client { return m.MQ }

// HealthCheck 检查各资源的连通性，返回每个资源的检查结果.
func (m *Manager) HealthCheck(ctx context.Context) map[string]error {
	out := map[string]error{}

	if m.DB != nil {
		out["db"] = m.DB.HealthCheck(ctx)
	}

	if m.Blob != nil {
		if _, err := m.Blob.Capacity(ctx); err != nil && !errors.Is(err, blob.ErrCapacityUnsupported) {
			out["blob"] = err
		} else {
			out["blob"] = nil
		}
	}

	if m.KV != nil {
		_, err := m.KV.Exists(ctx, "healthz")
		out["kv"] = err
	}

	return out
}

// Close 关闭全部资源.
func (m *Manager) Close() error {
	var errList []error

	if m.MQ != nil {
		if err := m.MQ.Close(); err != nil {
			errList = append(errList, fmt.Errorf("close mq: %w", err))
		}
	}

	if m.KV != nil {
		if err := m.KV.Close(); err != nil {
			errList = append(errList, fmt.Errorf("close kv: %w", err))
		}
	}

	if m.DB != nil {
		if err := m.DB.Close(); err != nil {
			errList = append(errList, fmt.Errorf("close db: %w", err))
		}
	}

	return errors.Join(errList...)
}
