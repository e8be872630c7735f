package types

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/internal/model"
)

// TestStoreFileRequestValidate 测试存储文件请求的名称与路径校验.
func TestStoreFileRequestValidate(t *testing.T) {
	ok := []StoreFileRequest{
		{Bucket: "photos", FolderPath: "2024", FileName: "a.png"},
		{Bucket: "photos", FolderPath: "/2024/06", FileName: "a.png"},
		{Bucket: "photos", FolderPath: "/", FileName: "a.png"},
		{Bucket: "photos", FileName: "a.png"},
	}
	for _, r := range ok {
		assert.NoError(t, r.Validate(), "%+v", r)
	}

	bad := map[string]StoreFileRequest{
		"Bucket":     {FileName: "a.png"},
		"FileName":   {Bucket: "photos", FileName: "x/a.png"},
		"FolderPath": {Bucket: "photos", FolderPath: "2024//06", FileName: "a.png"},
	}
	for field, r := range bad {
		err := r.Validate()
		require.Error(t, err, field)
		assert.True(t, errors.Is(err, errs.ErrValidation))

		var ve *errs.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, field, ve.Field)
	}

	long := StoreFileRequest{Bucket: strings.Repeat("b", 255), FileName: "a.png"}
	assert.ErrorIs(t, long.Validate(), errs.ErrValidation)
}

// TestCreateFolderRequestValidate 测试创建目录请求校验.
func TestCreateFolderRequestValidate(t *testing.T) {
	r := CreateFolderRequest{Bucket: "photos", ParentPath: "/2024", Name: "06"}
	require.NoError(t, r.Validate())
	assert.Equal(t, "/2024", r.ParentPath, "validate must not mutate the request")

	r.Name = ""
	assert.ErrorIs(t, r.Validate(), errs.ErrValidation)
}

// TestItemRequestValidate 测试存储项请求校验.
func TestItemRequestValidate(t *testing.T) {
	assert.NoError(t, (&ItemRequest{Bucket: "b", Path: "/2024/a.png"}).Validate())
	assert.NoError(t, (&ItemRequest{Bucket: "b", Path: "2024", Kind: model.KindFolder}).Validate())
	assert.ErrorIs(t, (&ItemRequest{Bucket: "b", Path: "/"}).Validate(), errs.ErrValidation)
	assert.ErrorIs(t, (&ItemRequest{Bucket: "b", Path: "a", Kind: "link"}).Validate(), errs.ErrValidation)

	mv := MoveItemRequest{Item: ItemRequest{Bucket: "b", Path: "/a"}, DstFolder: "/x", NewName: "y/z"}
	assert.ErrorIs(t, mv.Validate(), errs.ErrValidation)

	mv.NewName = "z"
	assert.NoError(t, mv.Validate())
}

// TestNewItemInfo 测试从存储项生成对外信息.
func TestNewItemInfo(t *testing.T) {
	parent := "01PARENT"
	now := time.Now()
	it := &model.StorageItem{
		ID:       "01FILE",
		Kind:     model.KindFile,
		ParentID: &parent,
		Name:     "a.png",
		Path:     "/2024/a.png",
		File: model.FileMeta{
			StoredPath: "/srv/1/7/ab",
			StoredName: "ab",
			FileType:   "image/png",
			SizeBytes:  42,
			ServerID:   1,
			Cipher:     "aes-256-gcm",
		},
		CreatedAt: now,
	}

	info := NewItemInfo(it)
	assert.Equal(t, "01PARENT", info.ParentID)
	assert.Equal(t, int64(42), info.SizeBytes)
	assert.Equal(t, "image/png", info.FileType)

	folder := NewItemInfo(&model.StorageItem{ID: "01DIR", Kind: model.KindFolder, Name: "2024", Path: "/2024"})
	assert.Empty(t, folder.ParentID)
	assert.Zero(t, folder.SizeBytes)
}
