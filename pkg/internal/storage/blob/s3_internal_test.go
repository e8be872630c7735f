package blob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWalkObjectsStopsProducer 测试回调提前返回时列举的生产者能够退出.
func TestWalkObjectsStopsProducer(t *testing.T) {
	done := make(chan struct{})

	// 与 minio 的 ListObjects 一样：无缓冲通道，发送时同时等待 ctx
	list := func(ctx context.Context) <-chan minio.ObjectInfo {
		ch := make(chan minio.ObjectInfo)

		go func() {
			defer close(done)
			defer close(ch)

			for _, key := range []string{"p1/s1-a", "p1/s1-b", "p2/s1-c"} {
				select {
				case ch <- minio.ObjectInfo{Key: key, Size: 1}:
				case <-ctx.Done():
					return
				}
			}
		}()

		return ch
	}

	stop := errors.New("stop")

	var seen []Object

	err := walkObjects(context.Background(), list, func(obj Object) error {
		seen = append(seen, obj)
		return stop
	})
	require.ErrorIs(t, err, stop)
	require.Len(t, seen, 1)
	assert.Equal(t, "p1", seen[0].Dir)
	assert.Equal(t, "s1-a", seen[0].Name)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listing goroutine still blocked after walk returned")
	}
}

// TestWalkObjectsListError 测试列举错误原样返回.
func TestWalkObjectsListError(t *testing.T) {
	boom := errors.New("access denied")

	list := func(context.Context) <-chan minio.ObjectInfo {
		ch := make(chan minio.ObjectInfo, 1)
		ch <- minio.ObjectInfo{Err: boom}
		close(ch)

		return ch
	}

	err := walkObjects(context.Background(), list, func(Object) error { return nil })
	assert.ErrorIs(t, err, boom)
}
