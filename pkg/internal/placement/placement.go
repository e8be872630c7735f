// Package placement 决定用户文件在物理存储上的位置.
//
// 用户根目录按用户编号确定性分片：ROOT/p{partition}/sub{subpartition}/u{userId}；
// 每个文件再随机落到用户根目录下的 {p}/{sp} 两级目录，限制任一层级的目录项数量.
// 随机目录可能被并发请求共用，文件名本身是随机唯一的，因此不会冲突.
package placement

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/yeisme/storevault/pkg/internal/errs"
)

const (
	// MaxUserRootsPerSubpartition 每个子分区容纳的用户根目录数.
	MaxUserRootsPerSubpartition = 2
	// MaxSubpartitionsPerPartition 每个分区容纳的子分区数.
	MaxSubpartitionsPerPartition = 2
	// MaxPartitions 文件随机分片的取值范围 [0, MaxPartitions).
	MaxPartitions = 1000
)

// DirMaker 创建目录，目录已存在视为成功.
type DirMaker interface {
	EnsureDir(ctx context.Context, dir string) error
}

// Allocator 物理位置分配器，可并发使用.
type Allocator struct {
	root   string
	dirs   DirMaker
	intn   func(n int) int
	server uint
}

// Option 分配器选项.
type Option func(*Allocator)

// WithRand 替换随机源，主要用于测试.
func WithRand(intn func(n int) int) Option {
	return func(a *Allocator) {
		a.intn = intn
	}
}

// New 创建分配器，root 为物理存储根路径，serverID 用作磁盘文件名前缀.
func New(root string, serverID uint, dirs DirMaker, opts ...Option) *Allocator {
	a := &Allocator{
		root:   root,
		dirs:   dirs,
		intn:   rand.IntN,
		server: serverID,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Root 返回物理存储根路径.
func (a *Allocator) Root() string { return a.root }

// UserShard 计算用户所在的分区与子分区编号.
func UserShard(userID uint64) (partition, subpartition uint64) {
	partition = userID/(MaxUserRootsPerSubpartition*MaxSubpartitionsPerPartition) + 1
	subpartition = userID/MaxUserRootsPerSubpartition + 1

	return partition, subpartition
}

// UserRoot 返回用户根目录，同一用户编号总是得到相同结果.
func (a *Allocator) UserRoot(userID uint64) string {
	partition, subpartition := UserShard(userID)

	return filepath.Join(a.root,
		"p"+strconv.FormatUint(partition, 10),
		"sub"+strconv.FormatUint(subpartition, 10),
		"u"+strconv.FormatUint(userID, 10))
}

// FileStoragePath 在用户根目录下随机选择 {p}/{sp} 目录.
func (a *Allocator) FileStoragePath(userID uint64) string {
	p := a.intn(MaxPartitions)
	sp := a.intn(MaxPartitions)

	return filepath.Join(a.UserRoot(userID), strconv.Itoa(p), strconv.Itoa(sp))
}

// EnsureDirectory 创建目录及缺失的上级目录，可重复、并发调用.
func (a *Allocator) EnsureDirectory(ctx context.Context, dir string) error {
	err := a.dirs.EnsureDir(ctx, dir)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrStorageCreation), errs.IsExpected(err), ctx.Err() != nil:
		return err
	default:
		return &errs.StorageCreationError{Path: dir, Err: err}
	}
}

// Allocate 分配并创建一个新的文件目录.
func (a *Allocator) Allocate(ctx context.Context, userID uint64) (string, error) {
	dir := a.FileStoragePath(userID)
	if err := a.EnsureDirectory(ctx, dir); err != nil {
		return "", err
	}

	return dir, nil
}

// NewStoredName 生成磁盘文件名：节点前缀加随机 UUID，与用户可见名称无关.
func (a *Allocator) NewStoredName() string {
	return fmt.Sprintf("s%d-%s", a.server, uuid.NewString())
}
