package model

import (
	"time"
)

// ItemKind 存储项类型，区分目录与文件.
type ItemKind string

const (
	// KindFolder 目录.
	KindFolder ItemKind = "folder"
	// KindFile 文件.
	KindFile ItemKind = "file"
)

// User 存储用户，SecretKey 在创建时生成且终身不变.
type User struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex"     json:"name"`
	SecretKey []byte    `gorm:"not null"                 json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Bucket 存储桶，名称在同一用户下唯一；根目录是隐式的.
type Bucket struct {
	ID        string    `gorm:"primaryKey;size:26"                                       json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex:idx_bucket_owner_name,priority:2" json:"name"`
	CreatorID uint64    `gorm:"not null;uniqueIndex:idx_bucket_owner_name,priority:1"    json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StorageItem 目录与文件的统一记录，Kind 为判别字段.
//
// (bucket_id, kind, path) 唯一索引等价于同类型下 (bucket, parent, name) 唯一，
// 因为 path 总是由父路径与 name 推导，并且不受 NULL 父节点比较语义影响.
// Path 只能通过 pathtree.Attach 修改.
type StorageItem struct {
	ID       string   `gorm:"primaryKey;size:26"                                                        json:"id"`
	BucketID string   `gorm:"size:26;not null;uniqueIndex:idx_item_path,priority:1;index:idx_item_parent,priority:1" json:"bucket_id"`
	Kind     ItemKind `gorm:"size:16;not null;uniqueIndex:idx_item_path,priority:2"                      json:"kind"`
	ParentID *string  `gorm:"size:26;index:idx_item_parent,priority:2"                                  json:"parent_id,omitempty"`
	Name     string   `gorm:"size:1024;not null"                                                        json:"name"`
	Path     string   `gorm:"size:2048;not null;uniqueIndex:idx_item_path,priority:3"                    json:"path"`
	// 仅文件使用
	File      FileMeta  `gorm:"embedded;embeddedPrefix:file_" json:"file,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileMeta 文件的物理存放信息，与逻辑路径无关.
type FileMeta struct {
	StoredPath string `gorm:"size:1024"      json:"stored_path"`
	StoredName string `gorm:"size:128;index" json:"stored_name"`
	FileType   string `gorm:"size:255"       json:"file_type"`
	SizeBytes  int64  `json:"size_bytes"`
	ServerID   uint   `json:"server_id"`
	Cipher     string `gorm:"size:32"        json:"cipher"`
}

// IsFolder 是否为目录.
func (i *StorageItem) IsFolder() bool { return i.Kind == KindFolder }

// IsFile 是否为文件.
func (i *StorageItem) IsFile() bool { return i.Kind == KindFile }

// AtRoot 是否直接位于存储桶根目录下.
func (i *StorageItem) AtRoot() bool { return i.ParentID == nil }
