package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled bool                `mapstructure:"enabled"` // 总开关
	Storage StorageEventsConfig `mapstructure:"storage"`
}

// StorageEventsConfig 存储领域的事件开关。
type StorageEventsConfig struct {
	BucketCreated bool `mapstructure:"bucket_created"`
	BucketDeleted bool `mapstructure:"bucket_deleted"`
	FolderCreated bool `mapstructure:"folder_created"`
	FileStored    bool `mapstructure:"file_stored"`
	ItemMoved     bool `mapstructure:"item_moved"`
	ItemDeleted   bool `mapstructure:"item_deleted"`
	StorageFull   bool `mapstructure:"storage_full"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	// 写路径事件默认开启
	v.SetDefault("events.storage.bucket_created", true)
	v.SetDefault("events.storage.bucket_deleted", true)
	v.SetDefault("events.storage.folder_created", true)
	v.SetDefault("events.storage.file_stored", true)
	v.SetDefault("events.storage.item_deleted", true)

	// 可选事件：默认关闭，按需开启
	v.SetDefault("events.storage.item_moved", false)
	v.SetDefault("events.storage.storage_full", true) // 容量告警由定时任务触发
}
