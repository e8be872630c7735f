package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/storevault/pkg/scheduler"
)

// yearly 一年一次，测试中只通过 RunNow 触发.
const yearly = "0 0 1 1 *"

// TestSchedulerRunNowRecordsStatus 测试立即执行任务并记录成功、失败与 panic 状态.
func TestSchedulerRunNowRecordsStatus(t *testing.T) {
	s, err := scheduler.NewScheduler()
	require.NoError(t, err)

	ctx := context.Background()

	var calls atomic.Int32

	require.NoError(t, s.AddCron(ctx, "ok", yearly, func(context.Context) error {
		calls.Add(1)
		return nil
	}))
	require.NoError(t, s.AddCron(ctx, "fail", yearly, func(context.Context) error {
		return errors.New("boom")
	}))
	require.NoError(t, s.AddCron(ctx, "panic", yearly, func(context.Context) error {
		panic("oops")
	}))
	assert.Error(t, s.AddCron(ctx, "ok", yearly, func(context.Context) error { return nil }))

	s.Start()
	t.Cleanup(func() { _ = s.Shutdown() })

	for _, name := range []string{"ok", "fail", "panic"} {
		require.NoError(t, s.RunNow(name))
	}

	require.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName("ok")
		return err == nil && info.Runs == 1 && info.Status == scheduler.StatusScheduled
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	require.Eventually(t, func() bool {
		info, _ := s.GetJobInfoByName("fail")
		return info.Status == scheduler.StatusError && info.Error == "boom"
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		info, _ := s.GetJobInfoByName("panic")
		return info.Status == scheduler.StatusError
	}, 5*time.Second, 10*time.Millisecond)

	infos := s.GetJobInfos()
	require.Len(t, infos, 3)
	assert.Equal(t, "fail", infos[0].Name)
	assert.False(t, infos[0].NextRun.IsZero())
}

// TestSchedulerRemove 测试移除任务以及非法 cron 表达式.
func TestSchedulerRemove(t *testing.T) {
	s, err := scheduler.NewScheduler()
	require.NoError(t, err)

	require.NoError(t, s.AddCron(context.Background(), "job", yearly, func(context.Context) error { return nil }))
	require.NoError(t, s.RemoveJobByName("job"))

	assert.Error(t, s.RemoveJobByName("job"))
	assert.Error(t, s.RunNow("job"))

	_, err = s.GetJobInfoByName("job")
	assert.Error(t, err)

	assert.Error(t, s.AddCron(context.Background(), "bad", "not a cron", func(context.Context) error { return nil }))
}
