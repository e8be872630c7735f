package configs

import (
	"time"

	"github.com/spf13/viper"
)

// BlobBackend 物理存储后端类型.
type BlobBackend string

// CipherAlgorithm 文件加密算法.
type CipherAlgorithm string

const (
	// BlobLocal 本地文件系统.
	BlobLocal BlobBackend = "local"
	// BlobS3 S3 兼容对象存储（minio）.
	BlobS3 BlobBackend = "s3"

	// CipherAESGCM AES-256-GCM.
	CipherAESGCM CipherAlgorithm = "aes-256-gcm"
	// CipherXChaCha XChaCha20-Poly1305.
	CipherXChaCha CipherAlgorithm = "xchacha20-poly1305"
)

const (
	DefaultStorageRoot           = "data/blobs"    // 默认物理存储根目录
	DefaultStorageServerID       = 1               // 默认存储节点编号
	DefaultStorageBackend        = BlobLocal       // 默认存储后端
	DefaultStorageCipher         = CipherAESGCM    // 默认加密算法
	DefaultStorageDirPerm        = 0o750           // 目录权限
	DefaultStorageFilePerm       = 0o640           // 文件权限
	DefaultStorageMinFreePercent = 5.0             // 剩余空间告警阈值（百分比）
	DefaultStorageOpTimeout      = 2 * time.Minute // 单次存储操作超时
)

// StorageConfig 物理存储与加密配置.
// 运行期间不可变，构造 StorageCoordinator 时显式传入.
type StorageConfig struct {
	Root           string          `mapstructure:"root"             rule:"required"`
	ServerID       uint            `mapstructure:"server_id"        rule:"min=1"`
	Backend        BlobBackend     `mapstructure:"backend"          rule:"oneof=local s3"`
	Cipher         CipherAlgorithm `mapstructure:"cipher"           rule:"oneof=aes-256-gcm xchacha20-poly1305"`
	DirPerm        uint32          `mapstructure:"dir_perm"`
	FilePerm       uint32          `mapstructure:"file_perm"`
	MinFreePercent float64         `mapstructure:"min_free_percent" rule:"min=0,max=100"`
	OpTimeout      time.Duration   `mapstructure:"op_timeout"`
}

// setDefaults 设置存储配置的默认值.
func (c *StorageConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("storage.root", DefaultStorageRoot)
	v.SetDefault("storage.server_id", DefaultStorageServerID)
	v.SetDefault("storage.backend", string(DefaultStorageBackend))
	v.SetDefault("storage.cipher", string(DefaultStorageCipher))
	v.SetDefault("storage.dir_perm", DefaultStorageDirPerm)
	v.SetDefault("storage.file_perm", DefaultStorageFilePerm)
	v.SetDefault("storage.min_free_percent", DefaultStorageMinFreePercent)
	v.SetDefault("storage.op_timeout", DefaultStorageOpTimeout)
}
