package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/sony/gobreaker"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/errs"
	s3c "github.com/yeisme/storevault/pkg/internal/storage/s3"
)

func init() {
	RegisterFactory(configs.BlobS3, func(ctx context.Context, cfg *configs.AppConfig) (Store, error) {
		cli, err := s3c.New(ctx, &cfg.S3)
		if err != nil {
			return nil, err
		}

		return NewS3(cli, cfg.Storage.Root, cfg.CircuitBreaker), nil
	})
}

// S3Store 基于 MinIO 的对象存储后端，目录只是对象键前缀.
type S3Store struct {
	cli    *s3c.Client
	prefix string
	cb     *gobreaker.CircuitBreaker
}

// NewS3 创建对象存储后端，cbCfg.Enabled 时对远程调用启用熔断.
func NewS3(cli *s3c.Client, root string, cbCfg configs.CircuitBreakerConfig) *S3Store {
	s := &S3Store{cli: cli, prefix: strings.Trim(filepath.ToSlash(root), "/")}

	if cbCfg.Enabled {
		s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "blob-s3",
			MaxRequests: cbCfg.MaxRequestsInHalf,
			Interval:    time.Duration(cbCfg.IntervalSeconds) * time.Second,
			Timeout:     time.Duration(cbCfg.TimeoutSeconds) * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < cbCfg.MinRequests {
					return false
				}

				return float64(counts.TotalFailures)/float64(counts.Requests) >= cbCfg.FailureRate
			},
			// 对象不存在是正常结果，不计入失败
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, errs.ErrNotFound)
			},
		})
	}

	return s
}

// Backend 返回 s3.
func (s *S3Store) Backend() configs.BlobBackend { return configs.BlobS3 }

// Root 返回对象键前缀.
func (s *S3Store) Root() string { return s.prefix }

// EnsureDir 对象存储没有目录，直接成功.
func (s *S3Store) EnsureDir(ctx context.Context, _ string) error {
	return ctx.Err()
}

// Write 上传对象.
func (s *S3Store) Write(ctx context.Context, dir, name string, data []byte) error {
	key := s.key(dir, name)

	_, err := s.do(func() (any, error) {
		return s.cli.PutObject(ctx, s.cli.Bucket, key, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: "application/octet-stream"})
	})
	if err != nil {
		return &errs.StorageCreationError{Path: key, Err: err}
	}

	return nil
}

// Read 下载对象.
func (s *S3Store) Read(ctx context.Context, dir, name string) ([]byte, error) {
	key := s.key(dir, name)

	out, err := s.do(func() (any, error) {
		obj, err := s.cli.GetObject(ctx, s.cli.Bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, s.translate(key, err)
		}
		defer obj.Close()

		data, err := io.ReadAll(obj)
		if err != nil {
			return nil, s.translate(key, err)
		}

		return data, nil
	})
	if err != nil {
		return nil, err
	}

	data, _ := out.([]byte)

	return data, nil
}

// Remove 删除对象，对象不存在时 MinIO 同样返回成功.
func (s *S3Store) Remove(ctx context.Context, dir, name string) error {
	key := s.key(dir, name)

	_, err := s.do(func() (any, error) {
		return nil, s.cli.RemoveObject(ctx, s.cli.Bucket, key, minio.RemoveObjectOptions{})
	})
	if err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}

	return nil
}

// Walk 递归列出前缀下的全部对象.
func (s *S3Store) Walk(ctx context.Context, fn WalkFunc) error {
	prefix := s.prefix
	if prefix != "" {
		prefix += "/"
	}

	return walkObjects(ctx, func(ctx context.Context) <-chan minio.ObjectInfo {
		return s.cli.ListObjects(ctx, s.cli.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	}, fn)
}

// walkObjects 依次处理 list 产出的对象. 提前返回时取消 list 的 ctx，生产者 goroutine 随之退出.
func walkObjects(ctx context.Context, list func(context.Context) <-chan minio.ObjectInfo, fn WalkFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range list(ctx) {
		if obj.Err != nil {
			return fmt.Errorf("list objects: %w", obj.Err)
		}

		if err := fn(Object{Dir: path.Dir(obj.Key), Name: path.Base(obj.Key), Size: obj.Size, ModTime: obj.LastModified}); err != nil {
			return err
		}
	}

	return nil
}

// Capacity 对象存储不提供容量信息.
func (s *S3Store) Capacity(context.Context) (Capacity, error) {
	return Capacity{}, ErrCapacityUnsupported
}

func (s *S3Store) key(dir, name string) string {
	return strings.TrimPrefix(path.Join(filepath.ToSlash(dir), name), "/")
}

func (s *S3Store) do(fn func() (any, error)) (any, error) {
	if s.cb == nil {
		return fn()
	}

	return s.cb.Execute(fn)
}

func (s *S3Store) translate(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return errs.NotFound(errs.KindBlob, key)
	}

	return fmt.Errorf("read object %s: %w", key, err)
}
