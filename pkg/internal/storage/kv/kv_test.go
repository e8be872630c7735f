package kv_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/storage/kv"
)

func stores(t *testing.T) map[string]kv.KVStore {
	t.Helper()

	ctx := context.Background()

	mem, err := kv.NewKVStore(ctx, configs.KVTypeMemory, nil)
	require.NoError(t, err)

	gc, err := kv.NewKVStore(ctx, configs.KVTypeGroupcache, &configs.GroupcacheKVConfig{
		Name:       "test-" + t.Name(),
		CacheBytes: 1 << 20,
	})
	require.NoError(t, err)

	return map[string]kv.KVStore{"memory": mem, "groupcache": gc}
}

// TestStoreBasics 测试读写、删除与未命中.
func TestStoreBasics(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "missing")
			require.ErrorIs(t, err, kv.ErrKeyNotFound)

			require.NoError(t, store.Set(ctx, "sv:bucket:7:photos", []byte("v1"), 0))

			got, err := store.Get(ctx, "sv:bucket:7:photos")
			require.NoError(t, err)
			assert.Equal(t, []byte("v1"), got)

			// 覆盖写后读到新值
			require.NoError(t, store.Set(ctx, "sv:bucket:7:photos", []byte("v2"), 0))
			got, err = store.Get(ctx, "sv:bucket:7:photos")
			require.NoError(t, err)
			assert.Equal(t, []byte("v2"), got)

			ok, err := store.Exists(ctx, "sv:bucket:7:photos")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, store.Delete(ctx, "sv:bucket:7:photos"))

			_, err = store.Get(ctx, "sv:bucket:7:photos")
			require.ErrorIs(t, err, kv.ErrKeyNotFound)
		})
	}
}

// TestStoreTTL 测试过期键视为不存在.
func TestStoreTTL(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(ctx, "short", []byte("x"), 20*time.Millisecond))
			require.NoError(t, store.Set(ctx, "long", []byte("y"), time.Hour))

			got, err := store.Get(ctx, "long")
			require.NoError(t, err)
			assert.Equal(t, []byte("y"), got)

			require.Eventually(t, func() bool {
				_, err := store.Get(ctx, "short")
				return err != nil
			}, time.Second, 10*time.Millisecond)
		})
	}
}

// TestStoreKeys 测试 glob 模式匹配.
func TestStoreKeys(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(ctx, "sv:bucket:1:a", []byte("1"), 0))
			require.NoError(t, store.Set(ctx, "sv:bucket:1:b", []byte("1"), 0))
			require.NoError(t, store.Set(ctx, "other", []byte("1"), 0))

			keys, err := store.Keys(ctx, "sv:bucket:1:*")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"sv:bucket:1:a", "sv:bucket:1:b"}, keys)

			all, err := store.Keys(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

// TestNewFromConfig 测试按配置选择实现.
func TestNewFromConfig(t *testing.T) {
	cfg := configs.Default().KV

	client, err := kv.New(context.Background(), &cfg)
	require.NoError(t, err)
	assert.Equal(t, configs.KVTypeMemory, client.Type)
	assert.Contains(t, kv.GetRegisteredKVTypes(), configs.KVTypeGroupcache)

	cfg.Type = "etcd"
	_, err = kv.New(context.Background(), &cfg)
	require.Error(t, err)
}
