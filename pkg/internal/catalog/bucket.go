package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/internal/model"
)

// CreateBucket 创建存储桶，同一用户下重名返回 errs.AlreadyExistsError.
func (c *Catalog) CreateBucket(ctx context.Context, b *model.Bucket) error {
	if b.ID == "" {
		b.ID = NewID()
	}

	if err := c.db.WithContext(ctx).Create(b).Error; err != nil {
		if IsDuplicate(err) {
			return errs.AlreadyExists(errs.KindBucket, b.Name)
		}

		return fmt.Errorf("create bucket %s: %w", b.Name, err)
	}

	return nil
}

// BucketByName 按 (用户, 名称) 查找存储桶.
func (c *Catalog) BucketByName(ctx context.Context, userID uint64, name string) (*model.Bucket, error) {
	var b model.Bucket

	err := c.db.WithContext(ctx).
		Where("creator_id = ? AND name = ?", userID, name).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound(errs.KindBucket, name)
		}

		return nil, fmt.Errorf("find bucket %s: %w", name, err)
	}

	return &b, nil
}

// ListBuckets 列出用户的全部存储桶，按名称排序.
func (c *Catalog) ListBuckets(ctx context.Context, userID uint64) ([]model.Bucket, error) {
	var buckets []model.Bucket

	if err := c.db.WithContext(ctx).
		Where("creator_id = ?", userID).
		Order("name").
		Find(&buckets).Error; err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	return buckets, nil
}

// DeleteBucket 删除存储桶及其全部存储项记录，返回被删除的文件记录（用于回收物理数据）.
// 应在事务中调用.
func (c *Catalog) DeleteBucket(ctx context.Context, bucketID string) ([]model.StorageItem, error) {
	var files []model.StorageItem

	db := c.db.WithContext(ctx)
	if err := db.Where("bucket_id = ? AND kind = ?", bucketID, model.KindFile).Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list bucket files: %w", err)
	}

	if err := db.Where("bucket_id = ?", bucketID).Delete(&model.StorageItem{}).Error; err != nil {
		return nil, fmt.Errorf("delete bucket items: %w", err)
	}

	res := db.Where("id = ?", bucketID).Delete(&model.Bucket{})
	if res.Error != nil {
		return nil, fmt.Errorf("delete bucket: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return nil, errs.NotFound(errs.KindBucket, bucketID)
	}

	return files, nil
}
