// Package mq 提供基于 Watermill 的统一消息队列客户端，用于发布存储领域事件.
//
// 支持的 MQ 类型：
//   - gochannel：进程内 pub/sub，单节点默认
//   - NATS（可选 JetStream 持久化）
//   - Redis pub/sub
//
// 使用示例：
//
//	client, err := mq.New(ctx, &cfg.MQ, cfg.Metrics.Enabled)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	err = queue.Publish(client.Publisher(), queue.TopicFileStored, payload)
//
//	ch, err := client.Subscribe(ctx, queue.TopicFileStored)
package mq

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/yeisme/storevault/pkg/configs"
	nlog "github.com/yeisme/storevault/pkg/log"
)

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[configs.MQType]Factory{}
)

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	factories[t] = f
}

// GetRegisteredMQTypes 返回已注册的 MQ 类型.
func GetRegisteredMQTypes() []configs.MQType {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	out := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// Client 封装 watermill Publisher 与 Subscriber.
type Client struct {
	Type configs.MQType

	publisher  message.Publisher
	subscriber message.Subscriber
}

// NewClient 由现成的 Publisher/Subscriber 组装客户端.
func NewClient(t configs.MQType, pub message.Publisher, sub message.Subscriber) *Client {
	return &Client{Type: t, publisher: pub, subscriber: sub}
}

// Publisher 返回底层 Publisher.
func (c *Client) Publisher() message.Publisher { return c.publisher }

// Subscriber 返回底层 Subscriber.
func (c *Client) Subscriber() message.Subscriber { return c.subscriber }

// Publish 便捷发布.
func (c *Client) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return fmt.Errorf("mq publisher not initialized")
	}

	return c.publisher.Publish(topic, msgs...)
}

// Subscribe 便捷订阅.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, fmt.Errorf("mq subscriber not initialized")
	}

	return c.subscriber.Subscribe(ctx, topic)
}

// Close 关闭资源.
func (c *Client) Close() error {
	var err error

	if c.publisher != nil {
		if e := c.publisher.Close(); e != nil {
			err = e
		}
	}

	// gochannel 的 Publisher 与 Subscriber 是同一实例，重复关闭是安全的
	if c.subscriber != nil {
		if e := c.subscriber.Close(); e != nil {
			err = e
		}
	}

	return err
}

// New 按配置初始化消息队列；启用指标时用 prometheus 装饰 Publisher/Subscriber.
func New(ctx context.Context, cfg *configs.MQConfig, metricsEnabled bool) (*Client, error) {
	factoriesMu.RLock()
	factory, ok := factories[cfg.Type]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	logger := NewLogger(nlog.Component("mq"))

	pub, sub, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	if metricsEnabled {
		builder := metrics.NewPrometheusMetricsBuilder(prometheus.DefaultRegisterer, "storevault", "mq")

		if pub, err = builder.DecoratePublisher(pub); err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		if sub, err = builder.DecorateSubscriber(sub); err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}
	}

	nlog.Logger().Info().Str("type", string(cfg.Type)).Msg("MQ 已初始化")

	return NewClient(cfg.Type, pub, sub), nil
}

// NewLogger 将 zerolog 适配为 watermill.LoggerAdapter.
func NewLogger(l *zerolog.Logger) watermill.LoggerAdapter {
	return &zerologAdapter{l: l}
}
