package jobs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/catalog"
	"github.com/yeisme/storevault/pkg/internal/jobs"
	"github.com/yeisme/storevault/pkg/internal/service"
	"github.com/yeisme/storevault/pkg/internal/storage/blob"
	"github.com/yeisme/storevault/pkg/internal/storage/db/dbtest"
	"github.com/yeisme/storevault/pkg/internal/types"
	"github.com/yeisme/storevault/pkg/internal/users"
	"github.com/yeisme/storevault/pkg/queue"
	"github.com/yeisme/storevault/pkg/scheduler"
)

func newCoordinator(t *testing.T, cfg configs.StorageConfig) (*service.Coordinator, *blob.LocalStore) {
	t.Helper()

	client := dbtest.Open(t)

	blobs, err := blob.NewLocal(t.TempDir(), 0o750, 0o640)
	require.NoError(t, err)

	dir := users.New(client.DB)
	_, err = dir.Create(context.Background(), "alice", users.WithID(1))
	require.NoError(t, err)

	coord, err := service.New(cfg, catalog.New(client.DB), dir, blobs)
	require.NoError(t, err)

	return coord, blobs
}

func age(t *testing.T, path string, d time.Duration) {
	t.Helper()

	old := time.Now().Add(-d)
	require.NoError(t, os.Chtimes(path, old, old))
}

// TestOrphanSweep 测试只回收超过宽限期且无记录引用的数据块.
func TestOrphanSweep(t *testing.T) {
	coord, blobs := newCoordinator(t, configs.Default().Storage)
	ctx := context.Background()

	_, err := coord.CreateBucket(ctx, &types.CreateBucketRequest{UserID: 1, Bucket: "docs"})
	require.NoError(t, err)

	stored, err := coord.StoreFile(ctx, &types.StoreFileRequest{UserID: 1, Bucket: "docs", FileName: "kept.txt", Data: []byte("keep me")})
	require.NoError(t, err)
	require.True(t, stored.Stored)

	dir, err := coord.Placement().Allocate(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, blobs.Write(ctx, dir, "s1-orphan-old", []byte("x")))
	require.NoError(t, blobs.Write(ctx, dir, "s1-orphan-new", []byte("y")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".pending-crashed"), []byte("z"), 0o640))

	// 已存储的文件与旧孤儿都早于宽限期
	require.NoError(t, blobs.Walk(ctx, func(obj blob.Object) error {
		if obj.Name != "s1-orphan-new" {
			age(t, filepath.Join(obj.Dir, obj.Name), 2*time.Hour)
		}

		return nil
	}))

	sweeper := jobs.NewOrphanSweeper(blobs, coord.Catalog(), jobs.SweepConfig{Grace: time.Hour, Rate: 1000, Burst: 10, BatchSize: 1})

	report, err := sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Scanned)
	assert.Equal(t, 1, report.Young)
	assert.Equal(t, 1, report.Pending)
	assert.Equal(t, 2, report.Removed)
	assert.Zero(t, report.Failed)

	var left []string
	require.NoError(t, blobs.Walk(ctx, func(obj blob.Object) error {
		left = append(left, obj.Name)
		return nil
	}))
	assert.Len(t, left, 2)
	assert.Contains(t, left, "s1-orphan-new")

	// 仍然可以读取被引用的文件
	loaded, err := coord.LoadFile(ctx, &types.LoadFileRequest{UserID: 1, Bucket: "docs", Path: "kept.txt"})
	require.NoError(t, err)
	assert.Equal(t, []byte("keep me"), loaded.Data)
}

// TestOrphanSweepCanceled 测试取消的上下文立即终止清理.
func TestOrphanSweepCanceled(t *testing.T) {
	coord, blobs := newCoordinator(t, configs.Default().Storage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sweeper := jobs.NewOrphanSweeper(blobs, coord.Catalog(), jobs.SweepConfig{})

	_, err := sweeper.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestCapacityReporterPublishesWhenLow 测试可用空间低于阈值时发布 storage.full 事件.
func TestCapacityReporterPublishesWhenLow(t *testing.T) {
	cfg := configs.Default().Storage
	cfg.MinFreePercent = 100

	coord, _ := newCoordinator(t, cfg)

	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 4}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })

	full, err := pubsub.Subscribe(context.Background(), queue.TopicStorageFull)
	require.NoError(t, err)

	info, err := jobs.NewCapacityReporter(coord, pubsub).Run(context.Background())
	require.NoError(t, err)

	if info.TotalBytes == 0 {
		t.Skip("filesystem does not report capacity")
	}

	require.True(t, info.Low)

	select {
	case msg := <-full:
		msg.Ack()

		evt, err := queue.ParseStorageFull(msg)
		require.NoError(t, err)
		assert.Equal(t, float64(100), evt.Payload.MinFreePercent)
		assert.Equal(t, info.TotalBytes, evt.Payload.TotalBytes)
	case <-time.After(5 * time.Second):
		t.Fatal("storage full event not received")
	}
}

// TestRegisterCronJobs 测试按配置注册维护任务.
func TestRegisterCronJobs(t *testing.T) {
	coord, _ := newCoordinator(t, configs.Default().Storage)

	sched, err := scheduler.NewScheduler()
	require.NoError(t, err)

	cfg := configs.Default()
	require.NoError(t, jobs.RegisterCronJobs(context.Background(), sched, coord, nil, &cfg))

	infos := sched.GetJobInfos()
	require.Len(t, infos, 2)
	assert.Equal(t, jobs.JobCapacityReport, infos[0].Name)
	assert.Equal(t, configs.DefaultCapacityCron, infos[0].CronExpr)
	assert.Equal(t, jobs.JobOrphanSweep, infos[1].Name)

	assert.Error(t, jobs.RegisterCronJobs(context.Background(), nil, coord, nil, &cfg))
}
