package pathtree_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/internal/model"
	"github.com/yeisme/storevault/pkg/internal/pathtree"
)

type mapLookup map[string]*model.StorageItem

func (m mapLookup) FolderByPath(_ context.Context, bucketID, path string) (*model.StorageItem, error) {
	if item, ok := m[bucketID+path]; ok {
		return item, nil
	}

	return nil, errs.NotFound(errs.KindFolder, path)
}

// TestValidateBucketName 测试存储桶名称长度边界.
func TestValidateBucketName(t *testing.T) {
	require.NoError(t, pathtree.ValidateBucketName("photos"))
	require.NoError(t, pathtree.ValidateBucketName(strings.Repeat("b", 254)))

	for _, name := range []string{"", strings.Repeat("b", 255)} {
		err := pathtree.ValidateBucketName(name)
		require.ErrorIs(t, err, errs.ErrValidation, "len=%d", len(name))
	}
}

// TestValidateFolderPath 测试目录路径规则.
func TestValidateFolderPath(t *testing.T) {
	for _, p := range []string{"", "/", "2024", "/2024", "2024/06", strings.Repeat("d", 1023)} {
		assert.NoError(t, pathtree.ValidateFolderPath(p), p)
	}

	for _, p := range []string{"2024/", "//2024", "2024//06", "/2024/", strings.Repeat("d", 1024)} {
		assert.ErrorIs(t, pathtree.ValidateFolderPath(p), errs.ErrValidation, p)
	}
}

// TestValidateName 测试名称不得为空且不得包含分隔符.
func TestValidateName(t *testing.T) {
	require.NoError(t, pathtree.ValidateName("a.png"))

	var ve *errs.ValidationError

	require.ErrorAs(t, pathtree.ValidateName("a/b"), &ve)
	assert.Equal(t, "segment", ve.Rule)
	assert.Equal(t, "name", ve.Field)

	require.ErrorIs(t, pathtree.ValidateName(""), errs.ErrValidation)
	require.ErrorIs(t, pathtree.ValidateName(strings.Repeat("n", 1024)), errs.ErrValidation)
}

// TestValidateItemPath 测试条目路径不能指向根目录.
func TestValidateItemPath(t *testing.T) {
	require.NoError(t, pathtree.ValidateItemPath("/2024/a.png"))
	require.ErrorIs(t, pathtree.ValidateItemPath("/"), errs.ErrValidation)
	require.ErrorIs(t, pathtree.ValidateItemPath("/2024/"), errs.ErrValidation)
}

// TestChildPathAndAttach 测试物化路径总是由父路径与名称推导.
func TestChildPathAndAttach(t *testing.T) {
	assert.Equal(t, "/a.png", pathtree.ChildPath(nil, "a.png"))

	year := &model.StorageItem{ID: "F1", Kind: model.KindFolder, Name: "2024"}
	pathtree.Attach(year, nil)
	assert.Equal(t, "/2024", year.Path)
	assert.Nil(t, year.ParentID)

	file := &model.StorageItem{ID: "F2", Kind: model.KindFile, Name: "a.png"}
	pathtree.Attach(file, year)
	assert.Equal(t, "/2024/a.png", file.Path)
	require.NotNil(t, file.ParentID)
	assert.Equal(t, "F1", *file.ParentID)

	// 重新挂载后路径随之更新
	pathtree.Attach(file, nil)
	assert.Equal(t, "/a.png", file.Path)
	assert.True(t, file.AtRoot())
}

// TestDirAndSplit 测试路径拆分.
func TestDirAndSplit(t *testing.T) {
	parent, name := pathtree.Dir("/2024/06/a.png")
	assert.Equal(t, "/2024/06", parent)
	assert.Equal(t, "a.png", name)

	parent, name = pathtree.Dir("a.png")
	assert.Equal(t, "", parent)
	assert.Equal(t, "a.png", name)

	assert.Equal(t, []string{"2024", "06"}, pathtree.Split("/2024/06"))
	assert.Nil(t, pathtree.Split("/"))
	assert.Equal(t, "", pathtree.Abs("/"))
	assert.Equal(t, "/2024", pathtree.Abs("2024"))

	assert.Equal(t, []string{"/2024", "/2024/06"}, pathtree.Lineage("2024/06"))
	assert.Nil(t, pathtree.Lineage(""))
}

// TestIsWithinAndRebase 测试前缀判断按段边界进行.
func TestIsWithinAndRebase(t *testing.T) {
	assert.True(t, pathtree.IsWithin("/2024/06", "/2024"))
	assert.False(t, pathtree.IsWithin("/20245", "/2024"))
	assert.False(t, pathtree.IsWithin("/2024", "/2024"))
	assert.True(t, pathtree.IsWithin("/x", ""))

	assert.Equal(t, "/archive/2024/06", pathtree.Rebase("/2024/06", "/2024", "/archive/2024"))
	assert.Equal(t, "/archive/2024", pathtree.Rebase("/2024", "/2024", "/archive/2024"))
}

// TestResolveParent 测试根目录返回 nil，缺失目录返回 NotFound.
func TestResolveParent(t *testing.T) {
	ctx := context.Background()
	year := &model.StorageItem{ID: "F1", BucketID: "B1", Kind: model.KindFolder, Name: "2024", Path: "/2024"}
	lookup := mapLookup{"B1/2024": year}

	for _, p := range []string{"", "/"} {
		parent, err := pathtree.ResolveParent(ctx, lookup, "B1", p)
		require.NoError(t, err)
		assert.Nil(t, parent)
	}

	parent, err := pathtree.ResolveParent(ctx, lookup, "B1", "2024")
	require.NoError(t, err)
	assert.Same(t, year, parent)

	_, err = pathtree.ResolveParent(ctx, lookup, "B2", "/2024")
	require.ErrorIs(t, err, errs.ErrNotFound)
}
