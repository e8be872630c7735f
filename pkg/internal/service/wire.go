package service

import (
	"github.com/yeisme/storevault/pkg/cache"
	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/catalog"
	"github.com/yeisme/storevault/pkg/internal/storage"
	"github.com/yeisme/storevault/pkg/internal/users"
)

// NewFromManager 使用 Manager 中的资源创建协调器：有 KV 时启用存储桶缓存，有 MQ 时发布事件.
func NewFromManager(mgr *storage.Manager, cfg *configs.AppConfig, opts ...Option) (*Coordinator, error) {
	var wired []Option

	if kvClient := mgr.GetKVClient(); kvClient != nil && cfg.Cache.Enabled {
		wired = append(wired, WithBucketCache(
			cache.NewCache(kvClient.KVStore, cache.WithPrefix(cfg.Cache.KeyPrefix)),
			cfg.Cache.BucketTTL,
		))
	}

	if mqClient := mgr.GetMQClient(); mqClient != nil {
		wired = append(wired, WithPublisher(mqClient.Publisher(), cfg.Events))
	}

	db := mgr.GetDBClient().DB

	return New(cfg.Storage, catalog.New(db), users.New(db), mgr.GetBlobStore(), append(wired, opts...)...)
}
