// Package s3 创建 S3 兼容对象存储（MinIO）客户端，供 s3 存储后端使用.
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/storevault/pkg/configs"
	nlog "github.com/yeisme/storevault/pkg/log"
)

// Client 包装 MinIO 客户端，绑定一个存放密文的 bucket.
type Client struct {
	*minio.Client

	Bucket string
	cfg    configs.S3Config
}

// New 初始化 MinIO 客户端，若 bucket 不存在则尝试创建.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("s3 config is nil")
	}

	c := *cfg
	endpoint := c.Endpoint
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			c.UseSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKeyID, c.SecretAccessKey, ""),
		Secure: c.UseSSL,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("storevault", configs.AppVersion)

	exists, err := cli.BucketExists(ctx, c.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", c.BucketName, err)
	}

	if !exists {
		if err := cli.MakeBucket(ctx, c.BucketName, minio.MakeBucketOptions{Region: c.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", c.BucketName, err)
		}

		nlog.Logger().Info().Str("bucket", c.BucketName).Msg("s3 bucket created")
	}

	nlog.Logger().Info().Str("endpoint", c.Endpoint).Str("bucket", c.BucketName).Msg("s3 connected")

	return &Client{Client: cli, Bucket: c.BucketName, cfg: c}, nil
}

// HealthCheck 简单的健康检查，确认 bucket 可访问.
func (c *Client) HealthCheck(ctx context.Context) error {
	ok, err := c.BucketExists(ctx, c.Bucket)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("bucket %s missing", c.Bucket)
	}

	return nil
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}

// GetConfig 返回客户端使用的配置.
func (c *Client) GetConfig() configs.S3Config {
	return c.cfg
}
