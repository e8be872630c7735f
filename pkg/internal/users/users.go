// Package users 是用户目录：创建用户、查询用户并解析其加密密钥.
//
// 用户密钥在创建时生成且终身不变，只保存在元数据库中，不写入外部缓存.
package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/yeisme/storevault/pkg/internal/catalog"
	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/internal/filecipher"
	"github.com/yeisme/storevault/pkg/internal/model"
	"github.com/yeisme/storevault/pkg/rule"
)

// NameRule 用户名校验规则.
const NameRule = "required,min=1,max=255"

// Directory 用户目录.
type Directory struct {
	db    *gorm.DB
	group singleflight.Group
}

// New 创建用户目录.
func New(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// CreateOption 创建用户选项.
type CreateOption func(*model.User)

// WithID 指定用户编号，用于从外部身份系统导入用户.
func WithID(id uint64) CreateOption {
	return func(u *model.User) { u.ID = id }
}

// Create 创建用户并生成密钥，重名返回 errs.AlreadyExistsError.
func (d *Directory) Create(ctx context.Context, name string, opts ...CreateOption) (*model.User, error) {
	if err := rule.ValidateVar(name, NameRule); err != nil {
		return nil, errs.Invalid("user name", name, err.Error())
	}

	key, err := filecipher.GenerateSecretKey()
	if err != nil {
		return nil, err
	}

	u := &model.User{Name: name, SecretKey: key}
	for _, opt := range opts {
		opt(u)
	}

	if err := d.db.WithContext(ctx).Create(u).Error; err != nil {
		if catalog.IsDuplicate(err) {
			return nil, errs.AlreadyExists(errs.KindUser, name)
		}

		return nil, fmt.Errorf("create user %s: %w", name, err)
	}

	return u, nil
}

// Get 按编号查询用户.
func (d *Directory) Get(ctx context.Context, id uint64) (*model.User, error) {
	var u model.User

	if err := d.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound(errs.KindUser, strconv.FormatUint(id, 10))
		}

		return nil, fmt.Errorf("find user %d: %w", id, err)
	}

	return &u, nil
}

// ByName 按用户名查询用户.
func (d *Directory) ByName(ctx context.Context, name string) (*model.User, error) {
	var u model.User

	if err := d.db.WithContext(ctx).Where("name = ?", name).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound(errs.KindUser, name)
		}

		return nil, fmt.Errorf("find user %s: %w", name, err)
	}

	return &u, nil
}

// List 列出全部用户，按编号排序.
func (d *Directory) List(ctx context.Context) ([]model.User, error) {
	var list []model.User

	if err := d.db.WithContext(ctx).Omit("secret_key").Order("id").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return list, nil
}

// SecretKey 解析用户密钥，同一用户的并发请求合并为一次查询.
// 返回的切片归调用方所有.
func (d *Directory) SecretKey(ctx context.Context, id uint64) ([]byte, error) {
	v, err, _ := d.group.Do(strconv.FormatUint(id, 10), func() (any, error) {
		var u model.User

		err := d.db.WithContext(ctx).Select("id", "secret_key").First(&u, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound(errs.KindUser, strconv.FormatUint(id, 10))
		}

		if err != nil {
			return nil, fmt.Errorf("load key for user %d: %w", id, err)
		}

		return u.SecretKey, nil
	})
	if err != nil {
		return nil, err
	}

	shared, _ := v.([]byte)
	key := make([]byte, len(shared))
	copy(key, shared)

	return key, nil
}
