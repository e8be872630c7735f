package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/internal/model"
	"github.com/yeisme/storevault/pkg/internal/pathtree"
)

// likeEscape 转义 LIKE 模式中的通配符，配合 ESCAPE '!' 使用.
var likeEscape = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func errKind(kind model.ItemKind) errs.Kind {
	switch kind {
	case model.KindFolder:
		return errs.KindFolder
	case model.KindFile:
		return errs.KindFile
	default:
		return errs.KindItem
	}
}

// Exists 判断 parentPath 下是否已有同类型同名的存储项，parentPath 为物化路径，根目录为空串.
func (c *Catalog) Exists(ctx context.Context, bucketID string, kind model.ItemKind, parentPath, name string) (bool, error) {
	var n int64

	p := parentPath + pathtree.Separator + name
	if err := c.db.WithContext(ctx).Model(&model.StorageItem{}).
		Where("bucket_id = ? AND kind = ? AND path = ?", bucketID, kind, p).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("check %s %s: %w", kind, p, err)
	}

	return n > 0, nil
}

// FindByPath 按物化路径查找指定类型的存储项.
func (c *Catalog) FindByPath(ctx context.Context, bucketID string, kind model.ItemKind, path string) (*model.StorageItem, error) {
	var item model.StorageItem

	p := pathtree.Abs(path)

	err := c.db.WithContext(ctx).
		Where("bucket_id = ? AND kind = ? AND path = ?", bucketID, kind, p).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound(errKind(kind), p)
		}

		return nil, fmt.Errorf("find %s %s: %w", kind, p, err)
	}

	return &item, nil
}

// FolderByPath 按物化路径查找目录，实现 pathtree.FolderLookup.
func (c *Catalog) FolderByPath(ctx context.Context, bucketID, path string) (*model.StorageItem, error) {
	return c.FindByPath(ctx, bucketID, model.KindFolder, path)
}

// ResolveParentOrRoot 根目录返回 nil，不存在的非根路径返回 errs.NotFoundError.
func (c *Catalog) ResolveParentOrRoot(ctx context.Context, bucketID, path string) (*model.StorageItem, error) {
	return pathtree.ResolveParent(ctx, c, bucketID, path)
}

// CreateItem 写入新的存储项，坐标冲突返回 errs.AlreadyExistsError.
func (c *Catalog) CreateItem(ctx context.Context, item *model.StorageItem) error {
	if item.ID == "" {
		item.ID = NewID()
	}

	if err := c.db.WithContext(ctx).Create(item).Error; err != nil {
		if IsDuplicate(err) {
			return errs.AlreadyExists(errKind(item.Kind), item.Path)
		}

		return fmt.Errorf("create %s %s: %w", item.Kind, item.Path, err)
	}

	return nil
}

// CreateChild 在事务内确认 parent 及其祖先仍在原位后写入 item，parent 为 nil 表示根目录.
// parent 已被删除或移走时返回 errs.NotFoundError，坐标冲突返回 errs.AlreadyExistsError.
func (c *Catalog) CreateChild(ctx context.Context, item, parent *model.StorageItem) error {
	return c.Transaction(ctx, func(tx *Catalog) error {
		if err := tx.LockLineage(ctx, item.BucketID, parent, false); err != nil {
			return err
		}

		return tx.CreateItem(ctx, item)
	})
}

// LockLineage 锁定目录 folder 及其全部祖先，并确认它们仍是读取时的那一组记录. 应在事务中调用.
// exclusive 为 false 时加共享锁，多个创建操作可以同时持有；SQLite 只有一个写者，不支持行锁.
func (c *Catalog) LockLineage(ctx context.Context, bucketID string, folder *model.StorageItem, exclusive bool) error {
	if folder == nil {
		return nil
	}

	strength := clause.LockingStrengthShare
	if exclusive {
		strength = clause.LockingStrengthUpdate
	}

	lineage := pathtree.Lineage(folder.Path)

	var rows []model.StorageItem
	if err := c.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: strength}).
		Select("id", "path").
		Where("bucket_id = ? AND kind = ? AND path IN ?", bucketID, model.KindFolder, lineage).
		Find(&rows).Error; err != nil {
		return fmt.Errorf("lock %s: %w", folder.Path, err)
	}

	if len(rows) != len(lineage) {
		return errs.NotFound(errs.KindFolder, folder.Path)
	}

	for _, r := range rows {
		if r.Path == folder.Path && r.ID != folder.ID {
			return errs.NotFound(errs.KindFolder, folder.Path)
		}
	}

	return nil
}

// LockItem 以排他锁重新读取 item，确认它仍在读取时的路径上. 应在事务中调用.
func (c *Catalog) LockItem(ctx context.Context, item *model.StorageItem) error {
	var ids []string

	if err := c.db.WithContext(ctx).Model(&model.StorageItem{}).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ? AND path = ?", item.ID, item.Path).
		Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("lock %s: %w", item.Path, err)
	}

	if len(ids) == 0 {
		return errs.NotFound(errKind(item.Kind), item.Path)
	}

	return nil
}

// Children 列出直接子项，目录在前，同类型按名称排序.
func (c *Catalog) Children(ctx context.Context, bucketID string, parent *model.StorageItem) ([]model.StorageItem, error) {
	var items []model.StorageItem

	q := c.db.WithContext(ctx).Where("bucket_id = ?", bucketID)
	if parent == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", parent.ID)
	}

	// "folder" > "file"，按 kind 倒序即目录在前
	if err := q.Order("kind DESC").Order("name").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}

	return items, nil
}

// CountChildren 统计目录的直接子项数量.
func (c *Catalog) CountChildren(ctx context.Context, bucketID, folderID string) (int64, error) {
	var n int64

	if err := c.db.WithContext(ctx).Model(&model.StorageItem{}).
		Where("bucket_id = ? AND parent_id = ?", bucketID, folderID).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}

	return n, nil
}

// Subtree 返回 path 之下的全部后代（不含自身），按路径排序.
func (c *Catalog) Subtree(ctx context.Context, bucketID, path string) ([]model.StorageItem, error) {
	var items []model.StorageItem

	prefix := path + pathtree.Separator
	if err := c.db.WithContext(ctx).
		Where("bucket_id = ? AND path LIKE ? ESCAPE '!'", bucketID, likeEscape.Replace(prefix)+"%").
		Order("path").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list subtree %s: %w", path, err)
	}

	// 部分数据库的 LIKE 不区分大小写，按字节前缀再过滤一次
	out := items[:0]
	for _, it := range items {
		if strings.HasPrefix(it.Path, prefix) {
			out = append(out, it)
		}
	}

	return out, nil
}

// DeleteItems 按 ID 删除存储项记录.
func (c *Catalog) DeleteItems(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := c.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.StorageItem{}).Error; err != nil {
		return fmt.Errorf("delete items: %w", err)
	}

	return nil
}

// Relocate 将 item 移动到 newParent 下并改名为 newName，目录的全部后代路径随之重算.
// 物理数据不移动. 应在事务中调用.
func (c *Catalog) Relocate(ctx context.Context, item, newParent *model.StorageItem, newName string) error {
	oldPath := item.Path

	item.Name = newName
	pathtree.Attach(item, newParent)

	db := c.db.WithContext(ctx)

	if err := db.Model(item).Select("parent_id", "name", "path", "updated_at").Updates(item).Error; err != nil {
		if IsDuplicate(err) {
			return errs.AlreadyExists(errKind(item.Kind), item.Path)
		}

		return fmt.Errorf("relocate %s: %w", oldPath, err)
	}

	if !item.IsFolder() || oldPath == item.Path {
		return nil
	}

	descendants, err := c.Subtree(ctx, item.BucketID, oldPath)
	if err != nil {
		return err
	}

	for _, d := range descendants {
		newPath := pathtree.Rebase(d.Path, oldPath, item.Path)
		if err := db.Model(&model.StorageItem{}).Where("id = ?", d.ID).Update("path", newPath).Error; err != nil {
			if IsDuplicate(err) {
				return errs.AlreadyExists(errKind(d.Kind), newPath)
			}

			return fmt.Errorf("rebase %s: %w", d.Path, err)
		}
	}

	return nil
}

// ReferencedStoredNames 返回给定磁盘文件名中仍被文件记录引用的集合.
func (c *Catalog) ReferencedStoredNames(ctx context.Context, names []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(names))
	if len(names) == 0 {
		return out, nil
	}

	var found []string
	if err := c.db.WithContext(ctx).Model(&model.StorageItem{}).
		Where("kind = ? AND file_stored_name IN ?", model.KindFile, names).
		Pluck("file_stored_name", &found).Error; err != nil {
		return nil, fmt.Errorf("lookup stored names: %w", err)
	}

	for _, n := range found {
		out[n] = struct{}{}
	}

	return out, nil
}

// Stats 统计存储项数量与文件总字节数.
func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	var s Stats

	db := c.db.WithContext(ctx)
	if err := db.Model(&model.Bucket{}).Count(&s.Buckets).Error; err != nil {
		return s, fmt.Errorf("count buckets: %w", err)
	}

	if err := db.Model(&model.StorageItem{}).Where("kind = ?", model.KindFolder).Count(&s.Folders).Error; err != nil {
		return s, fmt.Errorf("count folders: %w", err)
	}

	row := db.Model(&model.StorageItem{}).
		Where("kind = ?", model.KindFile).
		Select("COUNT(*), COALESCE(SUM(file_size_bytes), 0)").Row()
	if err := row.Scan(&s.Files, &s.Bytes); err != nil {
		return s, fmt.Errorf("sum files: %w", err)
	}

	return s, nil
}

// Stats 元数据统计.
type Stats struct {
	Buckets int64 `json:"buckets"`
	Folders int64 `json:"folders"`
	Files   int64 `json:"files"`
	Bytes   int64 `json:"bytes"`
}
