// Package catalog 是存储项元数据的查询与持久化层.
//
// 所有查询都限定在单个存储桶内；(bucket_id, kind, path) 唯一索引由数据库保证，
// 并发创建同一坐标时，后到的写入被数据库拒绝并翻译为 errs.AlreadyExistsError.
package catalog

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
	"gorm.io/gorm"

	"github.com/yeisme/storevault/pkg/internal/model"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID 生成按时间有序的 ULID.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Migrate 创建或更新元数据表.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&model.User{}, &model.Bucket{}, &model.StorageItem{}); err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}

	return nil
}

// Catalog 元数据访问层.
type Catalog struct {
	db *gorm.DB
}

// New 创建 Catalog.
func New(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// DB 返回底层连接.
func (c *Catalog) DB() *gorm.DB { return c.db }

// Transaction 在一个数据库事务中执行 fn，fn 收到绑定事务的 Catalog.
func (c *Catalog) Transaction(ctx context.Context, fn func(tx *Catalog) error) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Catalog{db: tx})
	})
}

// IsDuplicate 判断错误是否为唯一约束冲突.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
