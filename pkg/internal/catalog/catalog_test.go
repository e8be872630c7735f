package catalog_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/storevault/pkg/internal/catalog"
	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/internal/model"
	"github.com/yeisme/storevault/pkg/internal/pathtree"
	"github.com/yeisme/storevault/pkg/internal/storage/db/dbtest"
)

func newCatalog(t *testing.T) (*catalog.Catalog, *model.Bucket) {
	t.Helper()

	c := catalog.New(dbtest.Open(t).DB)
	b := &model.Bucket{Name: "photos", CreatorID: 7}
	require.NoError(t, c.CreateBucket(context.Background(), b))

	return c, b
}

func folder(t *testing.T, c *catalog.Catalog, b *model.Bucket, parent *model.StorageItem, name string) *model.StorageItem {
	t.Helper()

	item := &model.StorageItem{BucketID: b.ID, Kind: model.KindFolder, Name: name}
	pathtree.Attach(item, parent)
	require.NoError(t, c.CreateItem(context.Background(), item))

	return item
}

func file(t *testing.T, c *catalog.Catalog, b *model.Bucket, parent *model.StorageItem, name, stored string) *model.StorageItem {
	t.Helper()

	item := &model.StorageItem{
		BucketID: b.ID, Kind: model.KindFile, Name: name,
		File: model.FileMeta{StoredPath: "/srv/p1", StoredName: stored, SizeBytes: 10, ServerID: 1, Cipher: "aes-256-gcm"},
	}
	pathtree.Attach(item, parent)
	require.NoError(t, c.CreateItem(context.Background(), item))

	return item
}

// TestBuckets 测试存储桶的创建、查找与重名冲突.
func TestBuckets(t *testing.T) {
	ctx := context.Background()
	c, b := newCatalog(t)

	assert.Len(t, b.ID, 26)

	got, err := c.BucketByName(ctx, 7, "photos")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	err = c.CreateBucket(ctx, &model.Bucket{Name: "photos", CreatorID: 7})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	// 其它用户可以使用相同名称
	require.NoError(t, c.CreateBucket(ctx, &model.Bucket{Name: "photos", CreatorID: 8}))

	_, err = c.BucketByName(ctx, 7, "docs")
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, c.CreateBucket(ctx, &model.Bucket{Name: "archive", CreatorID: 7}))

	list, err := c.ListBuckets(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "archive", list[0].Name)
}

// TestExistsAndFindByPath 测试存在性判断与按路径查找.
func TestExistsAndFindByPath(t *testing.T) {
	ctx := context.Background()
	c, b := newCatalog(t)

	year := folder(t, c, b, nil, "2024")
	f := file(t, c, b, year, "a.png", "s1-x")

	ok, err := c.Exists(ctx, b.ID, model.KindFile, "/2024", "a.png")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists(ctx, b.ID, model.KindFolder, "/2024", "a.png")
	require.NoError(t, err)
	assert.False(t, ok, "folder and file are tracked separately")

	ok, err = c.Exists(ctx, b.ID, model.KindFolder, "", "2024")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := c.FindByPath(ctx, b.ID, model.KindFile, "/2024/a.png")
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, "s1-x", got.File.StoredName)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, year.ID, *got.ParentID)

	_, err = c.FindByPath(ctx, b.ID, model.KindFile, "/2024/b.png")

	var nf *errs.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, errs.KindFile, nf.Kind)
	assert.Equal(t, "/2024/b.png", nf.Key)
}

// TestLookupsScopedToBucket 测试查询限定在单个存储桶内.
func TestLookupsScopedToBucket(t *testing.T) {
	ctx := context.Background()
	c, b := newCatalog(t)
	folder(t, c, b, nil, "2024")

	other := &model.Bucket{Name: "other", CreatorID: 7}
	require.NoError(t, c.CreateBucket(ctx, other))

	_, err := c.FolderByPath(ctx, other.ID, "/2024")
	require.ErrorIs(t, err, errs.ErrNotFound)

	// 不同存储桶中相同路径互不冲突
	folder(t, c, other, nil, "2024")
}

// TestResolveParentOrRoot 测试父目录解析.
func TestResolveParentOrRoot(t *testing.T) {
	ctx := context.Background()
	c, b := newCatalog(t)
	year := folder(t, c, b, nil, "2024")

	parent, err := c.ResolveParentOrRoot(ctx, b.ID, "/")
	require.NoError(t, err)
	assert.Nil(t, parent)

	parent, err = c.ResolveParentOrRoot(ctx, b.ID, "2024")
	require.NoError(t, err)
	assert.Equal(t, year.ID, parent.ID)

	_, err = c.ResolveParentOrRoot(ctx, b.ID, "2025")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

// TestCreateItemDuplicate 测试唯一约束冲突翻译为 AlreadyExists 且不修改原记录.
func TestCreateItemDuplicate(t *testing.T) {
	ctx := context.Background()
	c, b := newCatalog(t)
	year := folder(t, c, b, nil, "2024")
	orig := file(t, c, b, year, "a.png", "s1-first")

	dup := &model.StorageItem{BucketID: b.ID, Kind: model.KindFile, Name: "a.png", File: model.FileMeta{StoredName: "s1-second"}}
	pathtree.Attach(dup, year)

	err := c.CreateItem(ctx, dup)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	got, err := c.FindByPath(ctx, b.ID, model.KindFile, "/2024/a.png")
	require.NoError(t, err)
	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, "s1-first", got.File.StoredName)

	// 同名目录与文件可以共存
	folder(t, c, b, year, "a.png")
}

// TestCreateItemConcurrent 测试并发创建同一坐标只有一个成功.
func TestCreateItemConcurrent(t *testing.T) {
	ctx := context.Background()
	c, b := newCatalog(t)

	const n = 8

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		exists  int
	)

	for range n {
		wg.Add(1)

		go func() {
			defer wg.Done()

			item := &model.StorageItem{BucketID: b.ID, Kind: model.KindFolder, Name: "race"}
			pathtree.Attach(item, nil)

			err := c.CreateItem(ctx, item)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				created++
			case assert.ErrorIs(t, err, errs.ErrAlreadyExists):
				exists++
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, exists)
}

// TestChildrenAndSubtree 测试子项列表与后代查询.
func TestChildrenAndSubtree(t *testing.T) {
	ctx := context.Background()
	c, b := newCatalog(t)

	year := folder(t, c, b, nil, "2024")
	june := folder(t, c, b, year, "06")
	file(t, c, b, year, "b.png", "s1-b")
	file(t, c, b, june, "c.png", "s1-c")
	file(t, c, b, nil, "root.txt", "s1-r")
	// 名称含 LIKE 通配符以及前缀相同的兄弟目录不能被误匹配
	folder(t, c, b, nil, "2024_x")
	folder(t, c, b, nil, "20245")

	kids, err := c.Children(ctx, b.ID, year)
	require.NoError(t, err)
	require.Len(t, kids, 2)
	assert.Equal(t, "06", kids[0].Name)
	assert.Equal(t, model.KindFolder, kids[0].Kind)
	assert.Equal(t, "b.png", kids[1].Name)

	roots, err := c.Children(ctx, b.ID, nil)
	require.NoError(t, err)
	assert.Len(t, roots, 4)

	n, err := c.CountChildren(ctx, b.ID, year.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	sub, err := c.Subtree(ctx, b.ID, "/2024")
	require.NoError(t, err)

	paths := make([]string, 0, len(sub))
	for _, it := range sub {
		paths = append(paths, it.Path)
	}

	assert.Equal(t, []string{"/2024/06", "/2024/06/c.png", "/2024/b.png"}, paths)
}

// TestRelocate 测试移动目录时后代路径全部重算，且路径不变式成立.
func TestRelocate(t *testing.T) {
	ctx := context.Background()
	c, b := newCatalog(t)

	year := folder(t, c, b, nil, "2024")
	june := folder(t, c, b, year, "06")
	pic := file(t, c, b, june, "c.png", "s1-c")
	archive := folder(t, c, b, nil, "archive")

	require.NoError(t, c.Transaction(ctx, func(tx *catalog.Catalog) error {
		return tx.Relocate(ctx, year, archive, "y2024")
	}))
	assert.Equal(t, "/archive/y2024", year.Path)

	got, err := c.FindByPath(ctx, b.ID, model.KindFile, "/archive/y2024/06/c.png")
	require.NoError(t, err)
	assert.Equal(t, pic.ID, got.ID)
	assert.Equal(t, "s1-c", got.File.StoredName, "bytes never move")

	movedJune, err := c.FolderByPath(ctx, b.ID, "/archive/y2024/06")
	require.NoError(t, err)
	assert.Equal(t, june.ID, movedJune.ID)
	assert.Equal(t, pathtree.ChildPath(year, "06"), movedJune.Path)
	assert.Equal(t, pathtree.ChildPath(movedJune, "c.png"), got.Path)

	_, err = c.FolderByPath(ctx, b.ID, "/2024")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

// TestRelocateCollision 测试移动到已存在的坐标返回 AlreadyExists 且事务回滚.
func TestRelocateCollision(t *testing.T) {
	ctx := context.Background()
	c, b := newCatalog(t)

	a := folder(t, c, b, nil, "a")
	folder(t, c, b, nil, "b")

	err := c.Transaction(ctx, func(tx *catalog.Catalog) error {
		return tx.Relocate(ctx, a, nil, "b")
	})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	_, err = c.FolderByPath(ctx, b.ID, "/a")
	require.NoError(t, err)
}

// TestCreateChildStaleParent 测试父目录在读取之后被移动、删除或重建时拒绝写入子项.
func TestCreateChildStaleParent(t *testing.T) {
	ctx := context.Background()
	c, b := newCatalog(t)

	year := folder(t, c, b, nil, "2024")
	june := folder(t, c, b, year, "06")
	staleJune := *june

	child := func(parent *model.StorageItem, name string) *model.StorageItem {
		item := &model.StorageItem{BucketID: b.ID, Kind: model.KindFolder, Name: name}
		pathtree.Attach(item, parent)

		return item
	}

	require.NoError(t, c.CreateChild(ctx, child(june, "a"), june))
	require.NoError(t, c.CreateChild(ctx, child(nil, "root"), nil))

	// 祖先被改名，旧路径下的写入失效
	require.NoError(t, c.Transaction(ctx, func(tx *catalog.Catalog) error {
		return tx.Relocate(ctx, year, nil, "y2024")
	}))

	err := c.CreateChild(ctx, child(&staleJune, "b"), &staleJune)
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = c.FolderByPath(ctx, b.ID, "/2024/06/b")
	require.ErrorIs(t, err, errs.ErrNotFound)

	// 删除后以相同路径重建，ID 不同
	gone := folder(t, c, b, nil, "tmp")
	require.NoError(t, c.DeleteItems(ctx, []string{gone.ID}))
	folder(t, c, b, nil, "tmp")

	err = c.CreateChild(ctx, child(gone, "c"), gone)
	require.ErrorIs(t, err, errs.ErrNotFound)

	movedJune, err := c.FolderByPath(ctx, b.ID, "/y2024/06")
	require.NoError(t, err)
	require.NoError(t, c.CreateChild(ctx, child(movedJune, "b"), movedJune))
	assert.NoError(t, c.Transaction(ctx, func(tx *catalog.Catalog) error {
		return tx.LockItem(ctx, movedJune)
	}))
	assert.ErrorIs(t, c.LockItem(ctx, &staleJune), errs.ErrNotFound)
}

// TestDeleteBucket 测试级联删除存储桶并返回文件记录.
func TestDeleteBucket(t *testing.T) {
	ctx := context.Background()
	c, b := newCatalog(t)

	year := folder(t, c, b, nil, "2024")
	file(t, c, b, year, "a.png", "s1-a")
	file(t, c, b, nil, "b.png", "s1-b")

	var files []model.StorageItem

	require.NoError(t, c.Transaction(ctx, func(tx *catalog.Catalog) error {
		var err error
		files, err = tx.DeleteBucket(ctx, b.ID)

		return err
	}))
	assert.Len(t, files, 2)

	_, err := c.BucketByName(ctx, 7, "photos")
	require.ErrorIs(t, err, errs.ErrNotFound)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Files)
	assert.Zero(t, stats.Folders)
}

// TestReferencedStoredNames 测试孤儿判断所需的引用查询.
func TestReferencedStoredNames(t *testing.T) {
	ctx := context.Background()
	c, b := newCatalog(t)
	file(t, c, b, nil, "a.png", "s1-a")

	refs, err := c.ReferencedStoredNames(ctx, []string{"s1-a", "s1-orphan"})
	require.NoError(t, err)
	assert.Contains(t, refs, "s1-a")
	assert.NotContains(t, refs, "s1-orphan")

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Files)
	assert.EqualValues(t, 10, stats.Bytes)
	assert.EqualValues(t, 1, stats.Buckets)
}

// TestNewIDOrdered 测试 ID 单调递增.
func TestNewIDOrdered(t *testing.T) {
	prev := catalog.NewID()
	for range 100 {
		next := catalog.NewID()
		require.Greater(t, next, prev)
		prev = next
	}
}
