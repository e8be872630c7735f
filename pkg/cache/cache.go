// Package cache 提供基于键值存储的泛型缓存实现.
//
// 值使用 sonic 序列化为 JSON 后写入 kv.KVStore，支持 TTL 与统一的键前缀.
//
// 基本用法:
//
//	c := cache.NewCache(kvClient, cache.WithPrefix("sv:"))
//
//	err := cache.Set(ctx, c, "bucket:7:photos", bucket, time.Minute)
//	b, err := cache.Get[model.Bucket](ctx, c, "bucket:7:photos")
//
//	b, err := cache.GetOrSet(ctx, c, "bucket:7:photos", func() (model.Bucket, error) {
//	    return loadBucket(ctx, 7, "photos")
//	}, time.Minute)
//
// 缓存只是加速层：未命中、反序列化失败或 KV 不可用都退化为调用 getter，不向调用方暴露.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/storevault/pkg/internal/storage/kv"
)

// ErrMiss 缓存未命中.
var ErrMiss = kv.ErrKeyNotFound

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore kv.KVStore
	prefix  string
}

// Option 缓存选项.
type Option func(*Cache)

// WithPrefix 为所有键加上统一前缀.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore, opts ...Option) *Cache {
	c := &Cache{kvStore: kvStore}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Cache) key(k string) string { return c.prefix + k }

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, c.key(key))
	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, c.key(key), data, ttl)
}

// Delete 删除缓存键，键不存在不视为错误.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.kvStore.Delete(ctx, c.key(key)); err != nil && !errors.Is(err, kv.ErrKeyNotFound) {
		return err
	}

	return nil
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, c.key(key))
}

// GetOrSet 获取缓存值，如果不存在则调用 getter 并回填.
// getter 的错误原样返回且不缓存.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	var zero T

	if value, err := Get[T](ctx, c, key); err == nil {
		return value, nil
	}

	value, err := getter()
	if err != nil {
		return zero, err
	}

	// 回填失败不影响返回值
	_ = Set(ctx, c, key, value, ttl)

	return value, nil
}

// Clear 清空当前前缀下的全部缓存.
func (c *Cache) Clear(ctx context.Context) error {
	keys, err := c.kvStore.Keys(ctx, c.prefix+"*")
	if err != nil {
		return err
	}

	for _, key := range keys {
		if delErr := c.kvStore.Delete(ctx, key); delErr != nil {
			return delErr
		}
	}

	return nil
}
