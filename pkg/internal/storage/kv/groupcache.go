package kv

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/yeisme/storevault/pkg/configs"
)

// versionSep 分隔业务键与版本号，组成 groupcache 内部键.
const versionSep = "\x00"

// GroupcacheKV 基于 Groupcache 的 KV 实现.
//
// groupcache 的条目不可变也无法删除，所以每次 Set/Delete 都递增键的版本号，
// 读取时以 key+版本 作为 groupcache 键，旧版本自然失效.
type GroupcacheKV struct {
	cache *groupcache.Group
	peers *groupcache.HTTPPool

	mu      sync.RWMutex
	data    map[string][]byte
	version map[string]uint64
}

// groupcacheGetter 实现 groupcache.Getter，从本地数据装载缓存.
type groupcacheGetter struct {
	kv *GroupcacheKV
}

func (g *groupcacheGetter) Get(_ context.Context, key string, dest groupcache.Sink) error {
	name, _, _ := strings.Cut(key, versionSep)

	g.kv.mu.RLock()
	value, exists := g.kv.data[name]
	g.kv.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}

	if err := dest.SetBytes(value); err != nil {
		return fmt.Errorf("failed to set bytes to sink: %w", err)
	}

	return nil
}

var (
	groupsMu sync.Mutex
	groups   = make(map[string]*GroupcacheKV)
)

// NewGroupcacheKV 创建 Groupcache KV 实例，同名 group 在进程内只注册一次.
func NewGroupcacheKV(_ context.Context, config any) (KVStore, error) {
	gcConfig, ok := config.(*configs.GroupcacheKVConfig)
	if !ok {
		return nil, fmt.Errorf("invalid Groupcache config")
	}

	groupsMu.Lock()
	defer groupsMu.Unlock()

	// groupcache.NewGroup 对重复名称会 panic
	if kv, ok := groups[gcConfig.Name]; ok {
		return kv, nil
	}

	kv := &GroupcacheKV{
		data:    make(map[string][]byte),
		version: make(map[string]uint64),
	}
	kv.cache = groupcache.NewGroup(gcConfig.Name, gcConfig.CacheBytes, &groupcacheGetter{kv: kv})

	if len(gcConfig.Peers) > 0 {
		kv.peers = groupcache.NewHTTPPoolOpts(gcConfig.Self, &groupcache.HTTPPoolOptions{})
		kv.peers.Set(gcConfig.Peers...)
	}

	groups[gcConfig.Name] = kv

	return kv, nil
}

func (g *GroupcacheKV) versionedKey(key string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.data[key]; !ok {
		return "", false
	}

	return key + versionSep + strconv.FormatUint(g.version[key], 10), true
}

// Get 获取键的值.
func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	vkey, ok := g.versionedKey(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	var data []byte
	if err := g.cache.Get(ctx, vkey, groupcache.AllocatingByteSliceSink(&data)); err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	val, expired, err := decodeWithTTL(data, time.Now())
	if err != nil {
		return nil, err
	}

	if expired {
		_ = g.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	result := make([]byte, len(val))
	copy(result, val)

	return result, nil
}

// Set 设置键的值.
func (g *GroupcacheKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)

	encoded, err := encodeWithTTL(data, ttl)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.data[key] = encoded
	g.version[key]++

	return nil
}

// Delete 删除键.
func (g *GroupcacheKV) Delete(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.data, key)
	g.version[key]++

	return nil
}

// Exists 检查键是否存在.
func (g *GroupcacheKV) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := g.Get(ctx, key); err != nil {
		return false, nil
	}

	return true, nil
}

// Keys 获取匹配模式的键.
func (g *GroupcacheKV) Keys(_ context.Context, pattern string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.data))
	for key := range g.data {
		if matchKey(pattern, key) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close 关闭缓存，groupcache 没有显式的关闭方法.
func (g *GroupcacheKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(configs.KVTypeGroupcache, NewGroupcacheKV)
}
