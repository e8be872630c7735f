// Package types 定义存储协调器的请求与响应结构.
//
// 请求结构体的 rule 标签与 pathtree 的校验规则一致；目录路径可写作 2024/06 或 /2024/06，
// Validate 在校验前统一为相对形式.
package types

import (
	"github.com/yeisme/storevault/pkg/internal/model"
	"github.com/yeisme/storevault/pkg/internal/pathtree"
	"github.com/yeisme/storevault/pkg/rule"
)

// CreateBucketRequest 创建存储桶请求.
type CreateBucketRequest struct {
	UserID uint64 `json:"user_id"`
	Bucket string `json:"bucket"  rule:"required,min=1,max=254"`
}

// Validate 校验请求.
func (r *CreateBucketRequest) Validate() error {
	return validate(r)
}

// DeleteBucketRequest 删除存储桶请求，总是级联删除全部内容.
type DeleteBucketRequest struct {
	UserID uint64 `json:"user_id"`
	Bucket string `json:"bucket"  rule:"required,min=1,max=254"`
}

// Validate 校验请求.
func (r *DeleteBucketRequest) Validate() error {
	return validate(r)
}

// CreateFolderRequest 在 ParentPath 下创建名为 Name 的目录.
type CreateFolderRequest struct {
	UserID     uint64 `json:"user_id"`
	Bucket     string `json:"bucket"                rule:"required,min=1,max=254"`
	ParentPath string `json:"parent_path,omitempty" rule:"omitempty,max=1023,folderpath"`
	Name       string `json:"name"                  rule:"required,max=1023,segment"`
}

// Validate 校验请求.
func (r *CreateFolderRequest) Validate() error {
	c := *r
	c.ParentPath = pathtree.Relative(c.ParentPath)

	return validate(&c)
}

// StoreFileRequest 存储文件请求，Data 为明文.
type StoreFileRequest struct {
	UserID      uint64 `json:"user_id"`
	Bucket      string `json:"bucket"                 rule:"required,min=1,max=254"`
	FolderPath  string `json:"folder_path,omitempty"  rule:"omitempty,max=1023,folderpath"`
	FileName    string `json:"file_name"              rule:"required,max=1023,segment"`
	ContentType string `json:"content_type,omitempty" rule:"max=255"`
	Data        []byte `json:"-"`
}

// Validate 校验请求.
func (r *StoreFileRequest) Validate() error {
	c := *r
	c.FolderPath = pathtree.Relative(c.FolderPath)

	return validate(&c)
}

// ItemRequest 按路径定位存储桶内的一个存储项.
// Kind 为空时按路径自动判断，同一路径上同时存在文件与目录时需显式指定.
type ItemRequest struct {
	UserID uint64         `json:"user_id"`
	Bucket string         `json:"bucket"         rule:"required,min=1,max=254"`
	Path   string         `json:"path"           rule:"required,max=1023,folderpath"`
	Kind   model.ItemKind `json:"kind,omitempty" rule:"omitempty,oneof=folder file"`
}

// Validate 校验请求.
func (r *ItemRequest) Validate() error {
	if err := pathtree.ValidateItemPath(r.Path); err != nil {
		return err
	}

	c := *r
	c.Path = pathtree.Relative(c.Path)

	return validate(&c)
}

// LoadFileRequest 读取文件请求.
type LoadFileRequest struct {
	UserID uint64 `json:"user_id"`
	Bucket string `json:"bucket"  rule:"required,min=1,max=254"`
	Path   string `json:"path"    rule:"required,max=1023,folderpath"`
}

// Validate 校验请求.
func (r *LoadFileRequest) Validate() error {
	if err := pathtree.ValidateItemPath(r.Path); err != nil {
		return err
	}

	c := *r
	c.Path = pathtree.Relative(c.Path)

	return validate(&c)
}

// DeleteFileRequest 删除文件请求.
type DeleteFileRequest = LoadFileRequest

// DeleteFolderRequest 删除目录请求，非递归删除非空目录返回 errs.NotEmptyError.
type DeleteFolderRequest struct {
	UserID    uint64 `json:"user_id"`
	Bucket    string `json:"bucket"              rule:"required,min=1,max=254"`
	Path      string `json:"path"                rule:"required,max=1023,folderpath"`
	Recursive bool   `json:"recursive,omitempty"`
}

// Validate 校验请求.
func (r *DeleteFolderRequest) Validate() error {
	if err := pathtree.ValidateItemPath(r.Path); err != nil {
		return err
	}

	c := *r
	c.Path = pathtree.Relative(c.Path)

	return validate(&c)
}

// MoveItemRequest 将存储项移动到 DstFolder 下，NewName 为空时保留原名.
type MoveItemRequest struct {
	Item      ItemRequest `json:"item"`
	DstFolder string      `json:"dst_folder,omitempty" rule:"omitempty,max=1023,folderpath"`
	NewName   string      `json:"new_name,omitempty"   rule:"omitempty,max=1023,segment"`
}

// Validate 校验请求.
func (r *MoveItemRequest) Validate() error {
	if err := r.Item.Validate(); err != nil {
		return err
	}

	c := *r
	c.Item.Path = pathtree.Relative(c.Item.Path)
	c.DstFolder = pathtree.Relative(c.DstFolder)

	return validate(&c)
}

// ListRequest 列出目录的直接子项.
type ListRequest struct {
	UserID     uint64 `json:"user_id"`
	Bucket     string `json:"bucket"                rule:"required,min=1,max=254"`
	FolderPath string `json:"folder_path,omitempty" rule:"omitempty,max=1023,folderpath"`
}

// Validate 校验请求.
func (r *ListRequest) Validate() error {
	c := *r
	c.FolderPath = pathtree.Relative(c.FolderPath)

	return validate(&c)
}

func validate(v any) error {
	return pathtree.FromRuleError(rule.ValidateStruct(v))
}
