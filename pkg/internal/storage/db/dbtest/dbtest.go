// Package dbtest 为测试提供独立的 SQLite 元数据库.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/catalog"
	"github.com/yeisme/storevault/pkg/internal/storage/db"
)

// Open 在 t.TempDir() 中创建已迁移的 SQLite 数据库，测试结束时自动关闭.
func Open(t testing.TB) *db.Client {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "catalog.db") + "?_pragma=busy_timeout(5000)"
	silent := zerolog.Nop()

	client, err := db.Open(context.Background(), sqlite.Open(dsn), db.GormConfig(&silent, 0),
		&configs.DBConfig{Type: configs.SQLite, MaxIdleConns: 1})
	require.NoError(t, err)

	require.NoError(t, catalog.Migrate(context.Background(), client.DB))

	t.Cleanup(func() { _ = client.Close() })

	return client
}
