package service

import (
	"context"
	"errors"

	"github.com/yeisme/storevault/pkg/internal/catalog"
	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/internal/model"
	"github.com/yeisme/storevault/pkg/internal/types"
	"github.com/yeisme/storevault/pkg/queue"
)

// CreateBucket 创建存储桶. 同名存储桶已存在时返回 Created=false.
func (c *Coordinator) CreateBucket(ctx context.Context, req *types.CreateBucketRequest) (res *types.CreateResult, err error) {
	ctx, sc := c.begin(ctx, OpCreateBucket, req.UserID, req.Bucket)
	defer func() {
		sc.end(err)

		if errors.Is(err, errs.ErrAlreadyExists) {
			res, err = &types.CreateResult{Created: false}, nil
		}
	}()

	if err = req.Validate(); err != nil {
		return nil, err
	}

	if _, err = c.users.Get(ctx, req.UserID); err != nil {
		return nil, err
	}

	b := &model.Bucket{Name: req.Bucket, CreatorID: req.UserID}

	if err = c.catalog.CreateBucket(ctx, b); err != nil {
		return nil, err
	}

	publish(ctx, c, c.events.BucketCreated, queue.TopicBucketCreated, queue.BucketCreatedPayload{
		Item: itemRef(req.UserID, b, nil),
	})

	return &types.CreateResult{Created: true, ID: b.ID}, nil
}

// ListBuckets 列出用户的全部存储桶.
func (c *Coordinator) ListBuckets(ctx context.Context, userID uint64) (out []types.BucketInfo, err error) {
	ctx, sc := c.begin(ctx, OpListBuckets, userID, "")
	defer func() { sc.end(err) }()

	buckets, err := c.catalog.ListBuckets(ctx, userID)
	if err != nil {
		return nil, err
	}

	out = make([]types.BucketInfo, 0, len(buckets))
	for i := range buckets {
		out = append(out, types.NewBucketInfo(&buckets[i]))
	}

	return out, nil
}

// DeleteBucket 删除存储桶及其全部内容，元数据在一个事务内删除，之后回收物理数据.
func (c *Coordinator) DeleteBucket(ctx context.Context, req *types.DeleteBucketRequest) (res *types.DeleteResult, err error) {
	ctx, sc := c.begin(ctx, OpDeleteBucket, req.UserID, req.Bucket)
	defer func() { sc.end(err) }()

	if err = req.Validate(); err != nil {
		return nil, err
	}

	b, err := c.catalog.BucketByName(ctx, req.UserID, req.Bucket)
	if err != nil {
		return nil, err
	}

	var (
		files   []model.StorageItem
		folders int
	)

	err = c.catalog.Transaction(ctx, func(tx *catalog.Catalog) error {
		items, err := tx.Subtree(ctx, b.ID, "")
		if err != nil {
			return err
		}

		for i := range items {
			if items[i].IsFolder() {
				folders++
			}
		}

		files, err = tx.DeleteBucket(ctx, b.ID)

		return err
	})

	c.evictBucket(ctx, req.UserID, req.Bucket)

	if err != nil {
		return nil, err
	}

	res = &types.DeleteResult{Deleted: true, Files: len(files), Folders: folders, Bytes: c.reclaim(ctx, files)}

	publish(ctx, c, c.events.BucketDeleted, queue.TopicBucketDeleted, queue.BucketDeletedPayload{
		Item:    itemRef(req.UserID, b, nil),
		Files:   res.Files,
		Folders: res.Folders,
		Bytes:   res.Bytes,
	})

	return res, nil
}
