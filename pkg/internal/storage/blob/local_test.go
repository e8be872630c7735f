package blob_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/internal/storage/blob"
)

func newLocal(t *testing.T) *blob.LocalStore {
	t.Helper()

	s, err := blob.NewLocal(t.TempDir(), 0o750, 0o640)
	require.NoError(t, err)

	return s
}

// TestLocalEnsureDirIdempotent 测试并发重复创建同一目录均成功.
func TestLocalEnsureDirIdempotent(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()
	dir := filepath.Join(s.Root(), "p1", "sub1", "u0", "12", "34")

	var wg sync.WaitGroup

	errCh := make(chan error, 16)

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errCh <- s.EnsureDir(ctx, dir)
		}()
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	require.NoError(t, s.EnsureDir(ctx, dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// TestLocalEnsureDirFailure 测试目录无法创建时返回 StorageCreationError.
func TestLocalEnsureDirFailure(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	// 同名普通文件占位，MkdirAll 必然失败
	blocker := filepath.Join(s.Root(), "p1")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := s.EnsureDir(ctx, filepath.Join(blocker, "sub1"))
	require.ErrorIs(t, err, errs.ErrStorageCreation)
}

// TestLocalWriteReadRemove 测试写入、读取、删除.
func TestLocalWriteReadRemove(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()
	dir := filepath.Join(s.Root(), "p1")

	require.NoError(t, s.EnsureDir(ctx, dir))
	require.NoError(t, s.Write(ctx, dir, "s1-abc", []byte("ciphertext")))

	data, err := s.Read(ctx, dir, "s1-abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("ciphertext"), data)

	// 没有残留的临时文件
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, s.Remove(ctx, dir, "s1-abc"))
	require.NoError(t, s.Remove(ctx, dir, "s1-abc"))

	_, err = s.Read(ctx, dir, "s1-abc")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

// TestLocalRejectsOutsideRoot 测试根目录之外的路径被拒绝.
func TestLocalRejectsOutsideRoot(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	err := s.Write(ctx, filepath.Dir(s.Root()), "escape", []byte("x"))
	require.ErrorIs(t, err, errs.ErrValidation)

	err = s.EnsureDir(ctx, filepath.Join(s.Root(), "..", "elsewhere"))
	require.ErrorIs(t, err, errs.ErrValidation)
}

// TestLocalWalk 测试遍历返回全部文件.
func TestLocalWalk(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	for _, d := range []string{"a", filepath.Join("b", "c")} {
		dir := filepath.Join(s.Root(), d)
		require.NoError(t, s.EnsureDir(ctx, dir))
		require.NoError(t, s.Write(ctx, dir, "f-"+filepath.Base(d), []byte("1234")))
	}

	seen := map[string]int64{}
	require.NoError(t, s.Walk(ctx, func(obj blob.Object) error {
		seen[obj.Name] = obj.Size

		return nil
	}))

	assert.Equal(t, map[string]int64{"f-a": 4, "f-c": 4}, seen)
}

// TestLocalCapacity 测试容量查询.
func TestLocalCapacity(t *testing.T) {
	s := newLocal(t)

	c, err := s.Capacity(context.Background())
	require.NoError(t, err)
	assert.Positive(t, c.Total)
	assert.GreaterOrEqual(t, c.Total, c.Available)
	assert.True(t, c.FreePercent() >= 0 && c.FreePercent() <= 100)
}

// TestNewFromConfig 测试按配置创建后端.
func TestNewFromConfig(t *testing.T) {
	cfg := configs.Default()
	cfg.Storage.Root = t.TempDir()

	s, err := blob.New(context.Background(), &cfg)
	require.NoError(t, err)
	assert.Equal(t, configs.BlobLocal, s.Backend())

	cfg.Storage.Backend = "tape"
	_, err = blob.New(context.Background(), &cfg)
	require.Error(t, err)
}

// TestIsPending 测试临时文件识别.
func TestIsPending(t *testing.T) {
	assert.True(t, blob.IsPending(".pending-123"))
	assert.False(t, blob.IsPending("s1-uuid"))
}
