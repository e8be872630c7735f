package configs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/storevault/pkg/configs"
)

// TestDefault 测试默认配置可以通过校验.
func TestDefault(t *testing.T) {
	cfg := configs.Default()

	require.NoError(t, configs.Validate(&cfg))
	assert.Equal(t, configs.BlobLocal, cfg.Storage.Backend)
	assert.Equal(t, configs.CipherAESGCM, cfg.Storage.Cipher)
	assert.Equal(t, configs.SQLite, cfg.DB.Type)
	assert.Equal(t, configs.MQTypeGoChannel, cfg.MQ.Type)
	assert.EqualValues(t, 1, cfg.Storage.ServerID)
}

// TestInitConfigFromFile 测试从 YAML 文件加载配置并覆盖默认值.
func TestInitConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
server:
  port: 9999
  reload_config: false
storage:
  root: /srv/blobs
  server_id: 3
  cipher: xchacha20-poly1305
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	require.NoError(t, configs.InitConfig(dir))

	cfg := configs.GetConfig()
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "/srv/blobs", cfg.Storage.Root)
	assert.EqualValues(t, 3, cfg.Storage.ServerID)
	assert.Equal(t, configs.CipherXChaCha, cfg.Storage.Cipher)
	// 未设置的字段保持默认值
	assert.Equal(t, configs.DefaultS3BucketName, cfg.S3.BucketName)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), configs.GetViper().ConfigFileUsed())
}

// TestInitConfigRejectsInvalid 测试非法配置被拒绝.
func TestInitConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	content := []byte("server:\n  reload_config: false\nstorage:\n  cipher: rot13\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	err := configs.InitConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

// TestValidateOrphanGrace 测试孤儿宽限期必须长于存储操作超时.
func TestValidateOrphanGrace(t *testing.T) {
	cfg := configs.Default()
	cfg.Storage.OpTimeout = 10 * time.Minute
	cfg.Jobs.OrphanGrace = 5 * time.Minute

	err := configs.Validate(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orphan_grace")

	cfg.Jobs.OrphanGrace = 0
	require.NoError(t, configs.Validate(&cfg), "zero falls back to the default grace")

	assert.Error(t, configs.ValidateOrphanGrace(time.Minute, time.Minute))
	assert.NoError(t, configs.ValidateOrphanGrace(time.Second, 0))
}

// TestGetDSN 测试不同数据库类型的 DSN 生成.
func TestGetDSN(t *testing.T) {
	cfg := configs.DBConfig{Type: configs.Pg, Host: "db", Port: 5432, User: "u", Password: "p", Database: "sv", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=sv sslmode=disable", cfg.GetDSN())
	assert.Equal(t, "PostgreSQL", cfg.GetDBType())

	cfg.Type = configs.SQLite
	assert.Contains(t, cfg.GetDSN(), "file:sv.db?")

	cfg.Type = "oracle"
	assert.Empty(t, cfg.GetDSN())
}
