// Package blob 提供密文数据的物理存储后端：本地文件系统与 S3 兼容对象存储.
//
// 目录参数都是 PlacementAllocator 生成的完整路径（包含根目录），
// 后端只负责字节的读写，不感知逻辑目录树与加密.
package blob

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/yeisme/storevault/pkg/configs"
)

// ErrCapacityUnsupported 后端无法报告容量.
var ErrCapacityUnsupported = errors.New("capacity report not supported")

// Object 存储后端中的一个文件.
type Object struct {
	Dir     string
	Name    string
	Size    int64
	ModTime time.Time
}

// WalkFunc 遍历回调，返回错误时终止遍历.
type WalkFunc func(obj Object) error

// Capacity 存储容量（字节）.
type Capacity struct {
	Total     int64 `json:"total"`
	Used      int64 `json:"used"`
	Available int64 `json:"available"`
}

// FreePercent 剩余空间百分比.
func (c Capacity) FreePercent() float64 {
	if c.Total <= 0 {
		return 0
	}

	return float64(c.Available) / float64(c.Total) * 100
}

// Store 物理存储后端.
type Store interface {
	// Backend 返回后端类型.
	Backend() configs.BlobBackend
	// Root 返回存储根路径，放置算法在其下分配目录.
	Root() string
	// EnsureDir 创建目录及缺失的上级目录，目录已存在视为成功，可并发调用.
	EnsureDir(ctx context.Context, dir string) error
	// Write 原子写入文件.
	Write(ctx context.Context, dir, name string, data []byte) error
	// Read 读取文件，不存在时返回 errs.NotFoundError.
	Read(ctx context.Context, dir, name string) ([]byte, error)
	// Remove 删除文件，不存在视为成功.
	Remove(ctx context.Context, dir, name string) error
	// Walk 遍历根路径下的全部文件.
	Walk(ctx context.Context, fn WalkFunc) error
	// Capacity 查询容量，仅用于上报.
	Capacity(ctx context.Context) (Capacity, error)
}

// Factory 根据配置创建存储后端.
type Factory func(ctx context.Context, cfg *configs.AppConfig) (Store, error)

var (
	factories   = map[configs.BlobBackend]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterFactory 注册存储后端工厂.
func RegisterFactory(backend configs.BlobBackend, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	factories[backend] = f
}

// GetRegisteredBackends 返回已注册的存储后端类型，按名称排序.
func GetRegisteredBackends() []configs.BlobBackend {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	out := make([]configs.BlobBackend, 0, len(factories))
	for backend := range factories {
		out = append(out, backend)
	}

	slices.Sort(out)

	return out
}

// New 按 storage.backend 创建存储后端.
func New(ctx context.Context, cfg *configs.AppConfig) (Store, error) {
	factoriesMu.RLock()
	f, ok := factories[cfg.Storage.Backend]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported blob backend: %s", cfg.Storage.Backend)
	}

	return f(ctx, cfg)
}
