package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/storevault/pkg/configs"
)

const (
	// DefaultChannelBufferSize 默认通道缓冲区大小.
	DefaultChannelBufferSize = 100
)

// errClosed Publisher/Subscriber 已关闭.
var errClosed = errors.New("redis pub/sub closed")

// redisFrame 在 Redis 频道上传输的消息帧，保留 watermill 的 UUID 与元数据.
type redisFrame struct {
	UUID     string            `json:"uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  []byte            `json:"payload"`
}

// RedisPublisher Redis Publisher 实现.
type RedisPublisher struct {
	client *redis.Client
}

// RedisSubscriber Redis Subscriber 实现，每次 Subscribe 使用独立的 PubSub 连接.
type RedisSubscriber struct {
	client *redis.Client
	logger watermill.LoggerAdapter

	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
	subs    []*redis.PubSub
	wg      sync.WaitGroup
}

func init() {
	RegisterFactory(configs.MQTypeRedis, redisFactory)
}

// redisFactory 创建 Redis Publisher & Subscriber.
func redisFactory(
	ctx context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	pubClient := redis.NewClient(opts)
	if err := pubClient.Ping(ctx).Err(); err != nil {
		_ = pubClient.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	sub := &RedisSubscriber{
		client:  redis.NewClient(opts),
		logger:  logger,
		closeCh: make(chan struct{}),
	}

	return &RedisPublisher{client: pubClient}, sub, nil
}

// Publish 实现 Publisher 接口.
func (p *RedisPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		frame := redisFrame{UUID: msg.UUID, Metadata: msg.Metadata, Payload: msg.Payload}

		data, err := sonic.Marshal(frame)
		if err != nil {
			return fmt.Errorf("marshal frame: %w", err)
		}

		if err := p.client.Publish(msg.Context(), topic, data).Err(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
	}

	return nil
}

// Close 实现 Publisher 接口.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Subscribe 实现 Subscriber 接口.
func (s *RedisSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errClosed
	}

	ps := s.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	s.subs = append(s.subs, ps)
	out := make(chan *message.Message, DefaultChannelBufferSize)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer close(out)

		s.pump(ctx, topic, ps.Channel(), out)
	}()

	return out, nil
}

// pump 将 Redis 消息转为 watermill 消息并等待 Ack/Nack.
// Redis pub/sub 不支持重投，Nack 只记录日志.
func (s *RedisSubscriber) pump(ctx context.Context, topic string, in <-chan *redis.Message, out chan<- *message.Message) {
	for {
		select {
		case <-s.closeCh:
			return
		case <-ctx.Done():
			return
		case raw, ok := <-in:
			if !ok {
				return
			}

			var frame redisFrame
			if err := sonic.UnmarshalString(raw.Payload, &frame); err != nil {
				s.logger.Error("drop malformed redis frame", err, watermill.LogFields{"topic": topic})
				continue
			}

			msg := message.NewMessage(frame.UUID, frame.Payload)
			for k, v := range frame.Metadata {
				msg.Metadata.Set(k, v)
			}

			msg.SetContext(ctx)

			select {
			case out <- msg:
			case <-s.closeCh:
				return
			case <-ctx.Done():
				return
			}

			select {
			case <-msg.Acked():
			case <-msg.Nacked():
				s.logger.Info("message nacked, redis pub/sub cannot redeliver", watermill.LogFields{
					"topic": topic, "uuid": msg.UUID,
				})
			case <-s.closeCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close 实现 Subscriber 接口.
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	close(s.closeCh)

	var errs []error

	for _, ps := range s.subs {
		if err := ps.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	errs = append(errs, s.client.Close())

	return errors.Join(errs...)
}
