package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// ItemRef 标识存储桶内的一个逻辑位置.
type ItemRef struct {
	UserID   uint64 `json:"user_id"`
	BucketID string `json:"bucket_id"`
	Bucket   string `json:"bucket"`
	ItemID   string `json:"item_id,omitempty"`
	Path     string `json:"path,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

// BucketCreatedPayload sv.bucket.created.
type BucketCreatedPayload struct {
	Item ItemRef `json:"item"`
}

// BucketDeletedPayload sv.bucket.deleted.
type BucketDeletedPayload struct {
	Item    ItemRef `json:"item"`
	Files   int     `json:"files"`
	Folders int     `json:"folders"`
	Bytes   int64   `json:"bytes"`
}

// FolderCreatedPayload sv.folder.created.
type FolderCreatedPayload struct {
	Item ItemRef `json:"item"`
}

// FileStoredPayload sv.file.stored，不包含物理存放路径.
type FileStoredPayload struct {
	Item      ItemRef `json:"item"`
	FileType  string  `json:"file_type,omitempty"`
	SizeBytes int64   `json:"size_bytes"`
	ServerID  uint    `json:"server_id"`
	Cipher    string  `json:"cipher"`
}

// ItemMovedPayload sv.item.moved.
type ItemMovedPayload struct {
	Item     ItemRef `json:"item"`
	FromPath string  `json:"from_path"`
	// Descendants 随之重算路径的后代数量
	Descendants int `json:"descendants,omitempty"`
}

// ItemDeletedPayload sv.item.deleted.
type ItemDeletedPayload struct {
	Item      ItemRef `json:"item"`
	Recursive bool    `json:"recursive,omitempty"`
	Files     int     `json:"files"`
	Folders   int     `json:"folders"`
	Bytes     int64   `json:"bytes"`
}

// StorageFullPayload sv.storage.full.
type StorageFullPayload struct {
	ServerID       uint    `json:"server_id"`
	Backend        string  `json:"backend"`
	Root           string  `json:"root"`
	TotalBytes     int64   `json:"total_bytes"`
	AvailableBytes int64   `json:"available_bytes"`
	FreePercent    float64 `json:"free_percent"`
	MinFreePercent float64 `json:"min_free_percent"`
}
