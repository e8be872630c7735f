package service

import (
	"context"
	"errors"

	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/internal/model"
	"github.com/yeisme/storevault/pkg/internal/pathtree"
	"github.com/yeisme/storevault/pkg/internal/types"
	"github.com/yeisme/storevault/pkg/metrics"
	"github.com/yeisme/storevault/pkg/queue"
)

// StoreState 存储文件流程的阶段.
type StoreState int

const (
	StateValidateInput StoreState = iota
	StateResolveBucketAndParent
	StateCheckCollision
	StateAllocatePhysicalPath
	StateEncryptAndWrite
	StateRecordCatalogEntry
	StateDone
	StateFailed
)

var storeStateNames = [...]string{
	StateValidateInput:          "ValidateInput",
	StateResolveBucketAndParent: "ResolveBucketAndParent",
	StateCheckCollision:         "CheckCollision",
	StateAllocatePhysicalPath:   "AllocatePhysicalPath",
	StateEncryptAndWrite:        "EncryptAndWrite",
	StateRecordCatalogEntry:     "RecordCatalogEntry",
	StateDone:                   "Done",
	StateFailed:                 "Failed",
}

func (s StoreState) String() string {
	if s < 0 || int(s) >= len(storeStateNames) {
		return "Unknown"
	}

	return storeStateNames[s]
}

// storeRun 一次存储流程在各阶段之间传递的数据.
type storeRun struct {
	req    *types.StoreFileRequest
	state  StoreState
	bucket *model.Bucket
	parent *model.StorageItem
	item   *model.StorageItem
	dir    string
	unlock func()
}

func (r *storeRun) String() string { return r.state.String() }

// StoreFile 加密并存储文件. 同一位置已有同名文件时返回 Stored=false 且不返回错误.
func (c *Coordinator) StoreFile(ctx context.Context, req *types.StoreFileRequest) (*types.StoreResult, error) {
	ctx, sc := c.begin(ctx, OpStoreFile, req.UserID, req.Bucket)

	run := &storeRun{req: req}
	sc.state = run

	err := c.runStore(ctx, run)
	if run.unlock != nil {
		run.unlock()
	}

	sc.end(err)

	switch {
	case err == nil:
		return &types.StoreResult{Stored: true, ID: run.item.ID, Path: run.item.Path, SizeBytes: run.item.File.SizeBytes}, nil
	case errors.Is(err, errs.ErrAlreadyExists):
		res := &types.StoreResult{Stored: false}
		if run.item != nil {
			res.Path = run.item.Path
		}

		return res, nil
	default:
		return nil, err
	}
}

func (c *Coordinator) runStore(ctx context.Context, run *storeRun) error {
	for run.state != StateDone {
		if err := ctx.Err(); err != nil {
			return err
		}

		next, err := c.storeStep(ctx, run)
		if err != nil {
			return err
		}

		run.state = next
	}

	c.logger.Info().
		Uint64("user_id", run.req.UserID).
		Str("bucket", run.bucket.Name).
		Str("path", run.item.Path).
		Int64("size", run.item.File.SizeBytes).
		Msg("file stored")

	publish(ctx, c, c.events.FileStored, queue.TopicFileStored, queue.FileStoredPayload{
		Item:      itemRef(run.req.UserID, run.bucket, run.item),
		FileType:  run.item.File.FileType,
		SizeBytes: run.item.File.SizeBytes,
		ServerID:  run.item.File.ServerID,
		Cipher:    run.item.File.Cipher,
	})

	return nil
}

func (c *Coordinator) storeStep(ctx context.Context, run *storeRun) (StoreState, error) {
	req := run.req

	switch run.state {
	case StateValidateInput:
		if err := req.Validate(); err != nil {
			return StateFailed, err
		}

		return StateResolveBucketAndParent, nil

	case StateResolveBucketAndParent:
		b, err := c.bucket(ctx, req.UserID, req.Bucket)
		if err != nil {
			return StateFailed, err
		}

		parent, err := c.catalog.ResolveParentOrRoot(ctx, b.ID, req.FolderPath)
		if err != nil {
			return StateFailed, err
		}

		run.bucket, run.parent = b, parent
		run.item = &model.StorageItem{BucketID: b.ID, Kind: model.KindFile, Name: req.FileName}
		pathtree.Attach(run.item, parent)

		return StateCheckCollision, nil

	case StateCheckCollision:
		run.unlock = c.locks.lock(run.bucket.ID, model.KindFile, run.item.Path)

		parentPath, _ := pathtree.Dir(run.item.Path)

		exists, err := c.catalog.Exists(ctx, run.bucket.ID, model.KindFile, parentPath, run.item.Name)
		if err != nil {
			return StateFailed, err
		}

		if exists {
			return StateFailed, errs.AlreadyExists(errs.KindFile, run.item.Path)
		}

		return StateAllocatePhysicalPath, nil

	case StateAllocatePhysicalPath:
		dir, err := c.placement.Allocate(ctx, req.UserID)
		if err != nil {
			return StateFailed, err
		}

		run.dir = dir
		run.item.File = model.FileMeta{
			StoredPath: dir,
			StoredName: c.placement.NewStoredName(),
			FileType:   req.ContentType,
			SizeBytes:  int64(len(req.Data)),
			ServerID:   c.cfg.ServerID,
			Cipher:     string(c.cipher.Algorithm()),
		}

		return StateEncryptAndWrite, nil

	case StateEncryptAndWrite:
		secret, err := c.users.SecretKey(ctx, req.UserID)
		if err != nil {
			return StateFailed, err
		}

		sealed, err := c.cipher.Encrypt(secret, req.Data)
		if err != nil {
			return StateFailed, err
		}

		if err := c.blobs.Write(ctx, run.dir, run.item.File.StoredName, sealed); err != nil {
			return StateFailed, err
		}

		return StateRecordCatalogEntry, nil

	case StateRecordCatalogEntry:
		// 父目录可能已在写入期间被移动或删除，写记录时在事务内重新确认
		if err := c.catalog.CreateChild(ctx, run.item, run.parent); err != nil {
			// 记录失败时数据块无人引用，立即回收
			c.removeBlob(ctx, run.item)

			return StateFailed, err
		}

		metrics.BytesWritten.Add(float64(run.item.File.SizeBytes))

		return StateDone, nil

	default:
		return StateFailed, errors.New("store: unexpected state " + run.state.String())
	}
}

// LoadFile 读取并解密文件.
func (c *Coordinator) LoadFile(ctx context.Context, req *types.LoadFileRequest) (res *types.LoadResult, err error) {
	ctx, sc := c.begin(ctx, OpLoadFile, req.UserID, req.Bucket)
	defer func() { sc.end(err) }()

	if err = req.Validate(); err != nil {
		return nil, err
	}

	sc.path(pathtree.Abs(req.Path))

	b, err := c.bucket(ctx, req.UserID, req.Bucket)
	if err != nil {
		return nil, err
	}

	item, err := c.catalog.FindByPath(ctx, b.ID, model.KindFile, req.Path)
	if err != nil {
		return nil, err
	}

	fc, err := c.cipherFor(item)
	if err != nil {
		return nil, err
	}

	sealed, err := c.blobs.Read(ctx, item.File.StoredPath, item.File.StoredName)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, &errs.MissingBlobError{Path: item.Path, StoredName: item.File.StoredName, Err: err}
		}

		return nil, err
	}

	secret, err := c.users.SecretKey(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	data, err := fc.Decrypt(secret, sealed)
	if err != nil {
		return nil, err
	}

	metrics.BytesRead.Add(float64(len(data)))

	return &types.LoadResult{Info: types.NewItemInfo(item), Data: data}, nil
}

// removeBlob 删除数据块，失败时留给孤儿清理任务.
func (c *Coordinator) removeBlob(ctx context.Context, item *model.StorageItem) {
	if err := c.blobs.Remove(context.WithoutCancel(ctx), item.File.StoredPath, item.File.StoredName); err != nil {
		c.logger.Warn().Err(err).
			Str("stored_name", item.File.StoredName).
			Msg("remove blob, left for orphan sweep")
	}
}
