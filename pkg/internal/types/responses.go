package types

import (
	"time"

	"github.com/yeisme/storevault/pkg/internal/model"
)

// CreateResult 创建存储桶或目录的结果；Created 为 false 表示已存在.
type CreateResult struct {
	Created bool   `json:"created"`
	ID      string `json:"id,omitempty"`
	Path    string `json:"path,omitempty"`
}

// StoreResult 存储文件的结果；Stored 为 false 表示同名文件已存在.
type StoreResult struct {
	Stored    bool   `json:"stored"`
	ID        string `json:"id,omitempty"`
	Path      string `json:"path,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// LoadResult 读取文件的结果.
type LoadResult struct {
	Info ItemInfo `json:"info"`
	Data []byte   `json:"-"`
}

// DeleteResult 删除的结果，计数包含全部后代.
type DeleteResult struct {
	Deleted bool  `json:"deleted"`
	Files   int   `json:"files"`
	Folders int   `json:"folders"`
	Bytes   int64 `json:"bytes"`
}

// MoveResult 移动的结果；Moved 为 false 表示目标位置已存在同名项.
type MoveResult struct {
	Moved       bool   `json:"moved"`
	From        string `json:"from"`
	Path        string `json:"path"`
	Descendants int    `json:"descendants,omitempty"`
}

// BucketInfo 存储桶信息.
type BucketInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemInfo 存储项信息，不包含物理存放位置.
type ItemInfo struct {
	ID        string         `json:"id"`
	Kind      model.ItemKind `json:"kind"`
	Name      string         `json:"name"`
	Path      string         `json:"path"`
	ParentID  string         `json:"parent_id,omitempty"`
	FileType  string         `json:"file_type,omitempty"`
	SizeBytes int64          `json:"size_bytes,omitempty"`
	Cipher    string         `json:"cipher,omitempty"`
	ServerID  uint           `json:"server_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ListResult 目录列表.
type ListResult struct {
	Bucket string     `json:"bucket"`
	Path   string     `json:"path"`
	Items  []ItemInfo `json:"items"`
}

// CapacityInfo 节点容量与元数据概况.
type CapacityInfo struct {
	ServerID       uint    `json:"server_id"`
	Backend        string  `json:"backend"`
	Root           string  `json:"root"`
	TotalBytes     int64   `json:"total_bytes"`
	UsedBytes      int64   `json:"used_bytes"`
	AvailableBytes int64   `json:"available_bytes"`
	FreePercent    float64 `json:"free_percent"`
	Low            bool    `json:"low"`
	Buckets        int64   `json:"buckets"`
	Folders        int64   `json:"folders"`
	Files          int64   `json:"files"`
	StoredBytes    int64   `json:"stored_bytes"`
}

// NewBucketInfo 由模型构造 BucketInfo.
func NewBucketInfo(b *model.Bucket) BucketInfo {
	return BucketInfo{ID: b.ID, Name: b.Name, CreatedAt: b.CreatedAt}
}

// NewItemInfo 由模型构造 ItemInfo.
func NewItemInfo(it *model.StorageItem) ItemInfo {
	info := ItemInfo{
		ID:        it.ID,
		Kind:      it.Kind,
		Name:      it.Name,
		Path:      it.Path,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}

	if it.ParentID != nil {
		info.ParentID = *it.ParentID
	}

	if it.IsFile() {
		info.FileType = it.File.FileType
		info.SizeBytes = it.File.SizeBytes
		info.Cipher = it.File.Cipher
		info.ServerID = it.File.ServerID
	}

	return info
}
