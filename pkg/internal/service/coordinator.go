// Package service 实现存储协调器：把逻辑目录树、元数据、放置算法、加密与物理存储串成完整的存储操作.
//
// 写路径遵循先写数据后写记录：只有密文成功落盘之后才会写入元数据，
// 因此任何失败都不会留下指向缺失数据的记录；反方向的残留（有数据无记录）由孤儿清理任务回收.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/storevault/pkg/cache"
	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/catalog"
	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/internal/filecipher"
	"github.com/yeisme/storevault/pkg/internal/model"
	"github.com/yeisme/storevault/pkg/internal/placement"
	"github.com/yeisme/storevault/pkg/internal/storage/blob"
	nlog "github.com/yeisme/storevault/pkg/log"
	"github.com/yeisme/storevault/pkg/metrics"
	"github.com/yeisme/storevault/pkg/queue"
	"github.com/yeisme/storevault/pkg/tracing"
)

// 操作名，同时用于 span 名（storage.<op>）与指标标签.
const (
	OpStoreFile    = "store_file"
	OpLoadFile     = "load_file"
	OpDeleteFile   = "delete_file"
	OpCreateBucket = "create_bucket"
	OpDeleteBucket = "delete_bucket"
	OpListBuckets  = "list_buckets"
	OpCreateFolder = "create_folder"
	OpDeleteFolder = "delete_folder"
	OpMove         = "move"
	OpList         = "list"
	OpStat         = "stat"
	OpCapacity     = "capacity"
)

const (
	lockStripes     = 256
	reclaimParallel = 8
	bucketKeyPrefix = "bucket:"
)

// UserDirectory 用户目录，users.Directory 实现该接口.
type UserDirectory interface {
	Get(ctx context.Context, id uint64) (*model.User, error)
	SecretKey(ctx context.Context, id uint64) ([]byte, error)
}

// Coordinator 存储协调器，可被多个请求并发使用.
type Coordinator struct {
	cfg       configs.StorageConfig
	catalog   *catalog.Catalog
	users     UserDirectory
	blobs     blob.Store
	placement *placement.Allocator
	cipher    *filecipher.Cipher
	locks     *keyLocks

	publisher message.Publisher
	events    configs.StorageEventsConfig

	buckets   *cache.Cache
	bucketTTL time.Duration

	logger *zerolog.Logger
}

// Option 协调器选项.
type Option func(*Coordinator)

// WithPublisher 发布领域事件；未设置时不发布.
func WithPublisher(pub message.Publisher, events configs.EventsConfig) Option {
	return func(c *Coordinator) {
		if pub == nil || !events.Enabled {
			return
		}

		c.publisher = pub
		c.events = events.Storage
	}
}

// WithBucketCache 缓存 (用户, 存储桶名) 到存储桶记录的映射.
func WithBucketCache(ca *cache.Cache, ttl time.Duration) Option {
	return func(c *Coordinator) {
		c.buckets = ca
		c.bucketTTL = ttl
	}
}

// WithLogger 指定日志记录器.
func WithLogger(l *zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithPlacementOptions 传递放置算法选项，测试中用于固定随机分区.
func WithPlacementOptions(opts ...placement.Option) Option {
	return func(c *Coordinator) {
		c.placement = placement.New(c.blobs.Root(), c.cfg.ServerID, c.blobs, opts...)
	}
}

// New 创建协调器. cfg 在运行期间不可变.
func New(cfg configs.StorageConfig, cat *catalog.Catalog, users UserDirectory, blobs blob.Store, opts ...Option) (*Coordinator, error) {
	fc, err := filecipher.New(cfg.Cipher)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:       cfg,
		catalog:   cat,
		users:     users,
		blobs:     blobs,
		placement: placement.New(blobs.Root(), cfg.ServerID, blobs),
		cipher:    fc,
		locks:     &keyLocks{},
		logger:    nlog.Component("storage"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Config 返回存储配置.
func (c *Coordinator) Config() configs.StorageConfig { return c.cfg }

// Catalog 返回元数据访问层.
func (c *Coordinator) Catalog() *catalog.Catalog { return c.catalog }

// Blobs 返回物理存储后端.
func (c *Coordinator) Blobs() blob.Store { return c.blobs }

// Placement 返回放置算法.
func (c *Coordinator) Placement() *placement.Allocator { return c.placement }

// keyLocks 按坐标分条带的互斥锁，覆盖同一进程内 CheckCollision 到 RecordCatalogEntry 的区间.
// 跨进程的并发由唯一索引兜底.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *keyLocks) lock(bucketID string, kind model.ItemKind, path string) func() {
	h := xxhash.New()
	_, _ = h.WriteString(bucketID)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(string(kind))
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(path)

	m := &l.stripes[h.Sum64()%lockStripes]
	m.Lock()

	return m.Unlock
}

// scope 一次操作的观测上下文：span、耗时、日志字段.
type scope struct {
	op     string
	start  time.Time
	span   trace.Span
	cancel context.CancelFunc
	log    zerolog.Logger
	state  fmt.Stringer
}

func (c *Coordinator) begin(ctx context.Context, op string, userID uint64, bucket string) (context.Context, *scope) {
	cancel := context.CancelFunc(func() {})
	if c.cfg.OpTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.cfg.OpTimeout)
	}

	ctx, span := tracing.StartSpan(ctx, "storage."+op, trace.WithAttributes(
		attribute.Int64("storage.user_id", int64(userID)),
		attribute.String("storage.bucket", bucket),
	))

	return ctx, &scope{
		op:     op,
		start:  time.Now(),
		span:   span,
		cancel: cancel,
		log: c.logger.With().
			Str("op", op).
			Uint64("user_id", userID).
			Str("bucket", bucket).
			Logger(),
	}
}

// end 结束操作；预期内的错误（校验失败、已存在、不存在、非空）只记录 debug 日志.
func (s *scope) end(err error) {
	defer s.cancel()

	d := time.Since(s.start)
	outcome := outcomeOf(err)
	metrics.ObserveOperation(s.op, outcome, d)
	tracing.End(s.span, err, errs.ErrValidation, errs.ErrAlreadyExists, errs.ErrNotFound, errs.ErrNotEmpty)

	ev := s.log.Debug()
	if err != nil && !errs.IsExpected(err) {
		ev = s.log.Error()
	}

	if s.state != nil {
		ev = ev.Stringer("state", s.state)
	}

	ev.Err(err).Str("outcome", outcome).Dur("elapsed", d).Msg(s.op)
}

func (s *scope) path(p string) {
	s.log = s.log.With().Str("path", p).Logger()
	s.span.SetAttributes(attribute.String("storage.path", p))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, errs.ErrAlreadyExists):
		return metrics.OutcomeExists
	case errors.Is(err, errs.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrNotEmpty):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

// bucket 按 (用户, 名称) 解析存储桶，命中缓存时不访问数据库.
func (c *Coordinator) bucket(ctx context.Context, userID uint64, name string) (*model.Bucket, error) {
	if c.buckets == nil {
		return c.catalog.BucketByName(ctx, userID, name)
	}

	b, err := cache.GetOrSet(ctx, c.buckets, bucketKey(userID, name), func() (model.Bucket, error) {
		b, err := c.catalog.BucketByName(ctx, userID, name)
		if err != nil {
			return model.Bucket{}, err
		}

		return *b, nil
	}, c.bucketTTL)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func (c *Coordinator) evictBucket(ctx context.Context, userID uint64, name string) {
	if c.buckets == nil {
		return
	}

	if err := c.buckets.Delete(ctx, bucketKey(userID, name)); err != nil {
		c.logger.Warn().Err(err).Str("bucket", name).Msg("evict bucket cache")
	}
}

func bucketKey(userID uint64, name string) string {
	return bucketKeyPrefix + strconv.FormatUint(userID, 10) + ":" + name
}

// cipherFor 返回解密某个文件所用的算法，早于算法字段写入的记录使用当前配置.
func (c *Coordinator) cipherFor(item *model.StorageItem) (*filecipher.Cipher, error) {
	if item.File.Cipher == "" || configs.CipherAlgorithm(item.File.Cipher) == c.cipher.Algorithm() {
		return c.cipher, nil
	}

	return filecipher.New(configs.CipherAlgorithm(item.File.Cipher))
}

func itemRef(userID uint64, b *model.Bucket, it *model.StorageItem) queue.ItemRef {
	ref := queue.ItemRef{UserID: userID, BucketID: b.ID, Bucket: b.Name}
	if it != nil {
		ref.ItemID = it.ID
		ref.Path = it.Path
		ref.Kind = string(it.Kind)
	}

	return ref
}

// publish 发布事件，失败只记录日志，不影响操作结果.
func publish[T any](ctx context.Context, c *Coordinator, enabled bool, topic string, payload T) {
	if c.publisher == nil || !enabled {
		return
	}

	opts := []func(*queue.EventHeader){queue.WithProducer("storevault-" + strconv.FormatUint(uint64(c.cfg.ServerID), 10))}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		opts = append(opts, queue.WithTraceID(sc.TraceID().String()))
	}

	if err := queue.Publish(c.publisher, topic, payload, opts...); err != nil {
		c.logger.Warn().Err(err).Str("topic", topic).Msg("publish event")
	}
}
