package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/yeisme/storevault/pkg/internal/catalog"
	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/internal/model"
	"github.com/yeisme/storevault/pkg/internal/pathtree"
	"github.com/yeisme/storevault/pkg/internal/types"
	"github.com/yeisme/storevault/pkg/queue"
)

// CreateFolder 在 ParentPath 下创建目录. 同名目录已存在时返回 Created=false.
func (c *Coordinator) CreateFolder(ctx context.Context, req *types.CreateFolderRequest) (res *types.CreateResult, err error) {
	ctx, sc := c.begin(ctx, OpCreateFolder, req.UserID, req.Bucket)
	defer func() {
		sc.end(err)

		if errors.Is(err, errs.ErrAlreadyExists) {
			res, err = &types.CreateResult{Created: false}, nil
		}
	}()

	if err = req.Validate(); err != nil {
		return nil, err
	}

	b, err := c.bucket(ctx, req.UserID, req.Bucket)
	if err != nil {
		return nil, err
	}

	parent, err := c.catalog.ResolveParentOrRoot(ctx, b.ID, req.ParentPath)
	if err != nil {
		return nil, err
	}

	item := &model.StorageItem{BucketID: b.ID, Kind: model.KindFolder, Name: req.Name}
	pathtree.Attach(item, parent)
	sc.path(item.Path)

	unlock := c.locks.lock(b.ID, model.KindFolder, item.Path)
	defer unlock()

	parentPath, _ := pathtree.Dir(item.Path)

	exists, err := c.catalog.Exists(ctx, b.ID, model.KindFolder, parentPath, item.Name)
	if err != nil {
		return nil, err
	}

	if exists {
		return nil, errs.AlreadyExists(errs.KindFolder, item.Path)
	}

	if err = c.catalog.CreateChild(ctx, item, parent); err != nil {
		return nil, err
	}

	publish(ctx, c, c.events.FolderCreated, queue.TopicFolderCreated, queue.FolderCreatedPayload{
		Item: itemRef(req.UserID, b, item),
	})

	return &types.CreateResult{Created: true, ID: item.ID, Path: item.Path}, nil
}

// DeleteFolder 删除目录. 非递归删除非空目录返回 errs.NotEmptyError；
// 递归删除在一个事务内删除全部后代记录，之后回收物理数据.
func (c *Coordinator) DeleteFolder(ctx context.Context, req *types.DeleteFolderRequest) (res *types.DeleteResult, err error) {
	ctx, sc := c.begin(ctx, OpDeleteFolder, req.UserID, req.Bucket)
	defer func() { sc.end(err) }()

	if err = req.Validate(); err != nil {
		return nil, err
	}

	sc.path(pathtree.Abs(req.Path))

	b, err := c.bucket(ctx, req.UserID, req.Bucket)
	if err != nil {
		return nil, err
	}

	folder, err := c.catalog.FolderByPath(ctx, b.ID, req.Path)
	if err != nil {
		return nil, err
	}

	var files []model.StorageItem

	res = &types.DeleteResult{Deleted: true, Folders: 1}

	err = c.catalog.Transaction(ctx, func(tx *catalog.Catalog) error {
		if err := tx.LockItem(ctx, folder); err != nil {
			return err
		}

		if !req.Recursive {
			n, err := tx.CountChildren(ctx, b.ID, folder.ID)
			if err != nil {
				return err
			}

			if n > 0 {
				return &errs.NotEmptyError{Path: folder.Path, Children: n}
			}

			return tx.DeleteItems(ctx, []string{folder.ID})
		}

		descendants, err := tx.Subtree(ctx, b.ID, folder.Path)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(descendants)+1)
		ids = append(ids, folder.ID)

		for _, d := range descendants {
			ids = append(ids, d.ID)

			if d.IsFile() {
				files = append(files, d)
			} else {
				res.Folders++
			}
		}

		return tx.DeleteItems(ctx, ids)
	})
	if err != nil {
		return nil, err
	}

	res.Files = len(files)
	res.Bytes = c.reclaim(ctx, files)

	publish(ctx, c, c.events.ItemDeleted, queue.TopicItemDeleted, queue.ItemDeletedPayload{
		Item:      itemRef(req.UserID, b, folder),
		Recursive: req.Recursive,
		Files:     res.Files,
		Folders:   res.Folders,
		Bytes:     res.Bytes,
	})

	return res, nil
}

// reclaim 并发删除已无记录引用的数据块，返回这些文件的明文字节总数.
// 删除失败只记录日志，残留数据由孤儿清理任务回收.
func (c *Coordinator) reclaim(ctx context.Context, files []model.StorageItem) int64 {
	var total int64

	g := new(errgroup.Group)
	g.SetLimit(reclaimParallel)

	for i := range files {
		f := &files[i]
		total += f.File.SizeBytes

		g.Go(func() error {
			c.removeBlob(ctx, f)
			return nil
		})
	}

	_ = g.Wait()

	return total
}
