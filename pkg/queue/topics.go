package queue

// 主题命名规范：sv.<实体>.<动作>，发布后保持稳定，新增字段走 payload 版本.

const (
	// 存储桶.
	TopicBucketCreated = "sv.bucket.created" // 存储桶已创建
	TopicBucketDeleted = "sv.bucket.deleted" // 存储桶及其全部内容已删除

	// 目录与文件.
	TopicFolderCreated = "sv.folder.created" // 目录已创建
	TopicFileStored    = "sv.file.stored"    // 文件已加密落盘并写入元数据
	TopicItemMoved     = "sv.item.moved"     // 文件或目录被移动/重命名
	TopicItemDeleted   = "sv.item.deleted"   // 文件或目录（含后代）被删除

	// 运维.
	TopicStorageFull = "sv.storage.full" // 存储空间低于阈值告警
)

// 通配模式，供按前缀订阅的中间件使用（NATS 的 > 语义）.
const (
	PatternAll    = "sv.>"
	PatternBucket = "sv.bucket.>"
	PatternItem   = "sv.item.>"
)

// Topics 返回全部已定义主题.
func Topics() []string {
	return []string{
		TopicBucketCreated,
		TopicBucketDeleted,
		TopicFolderCreated,
		TopicFileStored,
		TopicItemMoved,
		TopicItemDeleted,
		TopicStorageFull,
	}
}
