package service

import (
	"context"
	"errors"

	"github.com/yeisme/storevault/pkg/internal/catalog"
	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/internal/model"
	"github.com/yeisme/storevault/pkg/internal/pathtree"
	"github.com/yeisme/storevault/pkg/internal/types"
	"github.com/yeisme/storevault/pkg/queue"
)

// DeleteFile 删除文件：先删除记录，再回收数据块.
func (c *Coordinator) DeleteFile(ctx context.Context, req *types.DeleteFileRequest) (res *types.DeleteResult, err error) {
	ctx, sc := c.begin(ctx, OpDeleteFile, req.UserID, req.Bucket)
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

	if err = c.catalog.DeleteItems(ctx, []string{item.ID}); err != nil {
		return nil, err
	}

	c.removeBlob(ctx, item)

	res = &types.DeleteResult{Deleted: true, Files: 1, Bytes: item.File.SizeBytes}

	publish(ctx, c, c.events.ItemDeleted, queue.TopicItemDeleted, queue.ItemDeletedPayload{
		Item:  itemRef(req.UserID, b, item),
		Files: 1,
		Bytes: item.File.SizeBytes,
	})

	return res, nil
}

// Move 移动或重命名文件与目录. 目录的全部后代路径在同一事务内重算，物理数据不移动.
// 目标位置已有同类型同名项时返回 Moved=false.
func (c *Coordinator) Move(ctx context.Context, req *types.MoveItemRequest) (res *types.MoveResult, err error) {
	ctx, sc := c.begin(ctx, OpMove, req.Item.UserID, req.Item.Bucket)
	defer func() {
		sc.end(err)

		if errors.Is(err, errs.ErrAlreadyExists) {
			res, err = &types.MoveResult{Moved: false, From: pathtree.Abs(req.Item.Path)}, nil
		}
	}()

	if err = req.Validate(); err != nil {
		return nil, err
	}

	sc.path(pathtree.Abs(req.Item.Path))

	b, err := c.bucket(ctx, req.Item.UserID, req.Item.Bucket)
	if err != nil {
		return nil, err
	}

	item, err := c.resolveItem(ctx, b.ID, req.Item.Path, req.Item.Kind)
	if err != nil {
		return nil, err
	}

	parent, err := c.catalog.ResolveParentOrRoot(ctx, b.ID, req.DstFolder)
	if err != nil {
		return nil, err
	}

	if item.IsFolder() && parent != nil && (parent.ID == item.ID || pathtree.IsWithin(parent.Path, item.Path)) {
		return nil, errs.Invalid("dst_folder", parent.Path, "cannot move a folder into itself")
	}

	name := req.NewName
	if name == "" {
		name = item.Name
	}

	from := item.Path
	res = &types.MoveResult{Moved: true, From: from, Path: pathtree.ChildPath(parent, name)}

	if res.Path == from {
		return res, nil
	}

	unlock := c.locks.lock(b.ID, item.Kind, res.Path)
	defer unlock()

	err = c.catalog.Transaction(ctx, func(tx *catalog.Catalog) error {
		if err := tx.LockItem(ctx, item); err != nil {
			return err
		}

		if err := tx.LockLineage(ctx, b.ID, parent, false); err != nil {
			return err
		}

		if item.IsFolder() {
			descendants, err := tx.Subtree(ctx, b.ID, from)
			if err != nil {
				return err
			}

			res.Descendants = len(descendants)
		}

		return tx.Relocate(ctx, item, parent, name)
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, c, c.events.ItemMoved, queue.TopicItemMoved, queue.ItemMovedPayload{
		Item:        itemRef(req.Item.UserID, b, item),
		FromPath:    from,
		Descendants: res.Descendants,
	})

	return res, nil
}

// List 列出目录的直接子项，目录在前.
func (c *Coordinator) List(ctx context.Context, req *types.ListRequest) (res *types.ListResult, err error) {
	ctx, sc := c.begin(ctx, OpList, req.UserID, req.Bucket)
	defer func() { sc.end(err) }()

	if err = req.Validate(); err != nil {
		return nil, err
	}

	b, err := c.bucket(ctx, req.UserID, req.Bucket)
	if err != nil {
		return nil, err
	}

	parent, err := c.catalog.ResolveParentOrRoot(ctx, b.ID, req.FolderPath)
	if err != nil {
		return nil, err
	}

	children, err := c.catalog.Children(ctx, b.ID, parent)
	if err != nil {
		return nil, err
	}

	res = &types.ListResult{Bucket: b.Name, Path: pathtree.Abs(req.FolderPath), Items: make([]types.ItemInfo, 0, len(children))}
	for i := range children {
		res.Items = append(res.Items, types.NewItemInfo(&children[i]))
	}

	return res, nil
}

// Stat 查询单个存储项.
func (c *Coordinator) Stat(ctx context.Context, req *types.ItemRequest) (info *types.ItemInfo, err error) {
	ctx, sc := c.begin(ctx, OpStat, req.UserID, req.Bucket)
	defer func() { sc.end(err) }()

	if err = req.Validate(); err != nil {
		return nil, err
	}

	b, err := c.bucket(ctx, req.UserID, req.Bucket)
	if err != nil {
		return nil, err
	}

	item, err := c.resolveItem(ctx, b.ID, req.Path, req.Kind)
	if err != nil {
		return nil, err
	}

	out := types.NewItemInfo(item)

	return &out, nil
}

// resolveItem 按路径查找存储项. kind 为空时同时查找文件与目录，两者都存在时要求调用方指定类型.
func (c *Coordinator) resolveItem(ctx context.Context, bucketID, path string, kind model.ItemKind) (*model.StorageItem, error) {
	if kind != "" {
		return c.catalog.FindByPath(ctx, bucketID, kind, path)
	}

	file, ferr := c.catalog.FindByPath(ctx, bucketID, model.KindFile, path)
	if ferr != nil && !errors.Is(ferr, errs.ErrNotFound) {
		return nil, ferr
	}

	folder, derr := c.catalog.FindByPath(ctx, bucketID, model.KindFolder, path)
	if derr != nil && !errors.Is(derr, errs.ErrNotFound) {
		return nil, derr
	}

	switch {
	case file != nil && folder != nil:
		return nil, errs.Invalid("path", pathtree.Abs(path), "both a file and a folder exist, kind is required")
	case file != nil:
		return file, nil
	case folder != nil:
		return folder, nil
	default:
		return nil, errs.NotFound(errs.KindItem, pathtree.Abs(path))
	}
}
