// Package queue 定义存储领域事件的主题、负载与统一信封.
//
// 概览
//   - 发布/订阅模型，存储操作成功落库后发布事件，下游（审计、索引、配额统计）异步消费
//   - 统一的消息封装：Message[Payload] = Header + Payload
//   - 主题常量见 topics.go，负载结构体见 payloads.go
//   - JSON 编解码（bytedance/sonic）
//
// 消息信封 JSON 结构
//
//	{
//	  "header": {
//	    "topic": "sv.file.stored",
//	    "trace_id": "optional-trace-id",
//	    "producer": "storevault",
//	    "occurred_at": "2025-01-02T03:04:05.123456Z",
//	    "version": "v1"
//	  },
//	  "payload": { ... 取决于具体主题 ... }
//	}
//
// 发布/订阅示例
//
//	err := queue.Publish(pub, queue.TopicFileStored, queue.FileStoredPayload{
//	  Item: queue.ItemRef{UserID: 7, Bucket: "photos", Path: "/2024/a.png", Kind: "file"},
//	  SizeBytes: 42,
//	}, queue.WithProducer("storevault"))
//
//	ch, _ := sub.Subscribe(ctx, queue.TopicFileStored)
//	for m := range ch {
//	  env, _ := queue.ParseFileStored(m)
//	  // 使用 env.Header / env.Payload ...
//	  m.Ack()
//	}
//
// 注意事项
//  1. occurred_at 为 UTC
//  2. 消费者应忽略未知字段，负载演进通过 version 区分
//  3. 事件投递至少一次，消费者按 item_id 做幂等
package queue

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
)

const (
	PayloadVersionV1 string = "v1"
)

// NewEventHeader 便捷创建事件头.
func NewEventHeader(topic string, opts ...func(*EventHeader)) EventHeader {
	hdr := EventHeader{
		Topic:      topic,
		OccurredAt: time.Now().UTC(),
		Version:    PayloadVersionV1,
	}
	for _, opt := range opts {
		opt(&hdr)
	}

	return hdr
}

// WithTraceID 设置 TraceID.
func WithTraceID(id string) func(*EventHeader) { return func(h *EventHeader) { h.TraceID = id } }

// WithProducer 设置 Producer.
func WithProducer(p string) func(*EventHeader) { return func(h *EventHeader) { h.Producer = p } }

// Encode 将消息封装为 JSON 字节切片.
func Encode[T any](msg Message[T]) ([]byte, error) { return sonic.Marshal(msg) }

// Decode 从 JSON 字节解码为消息.
func Decode[T any](b []byte) (Message[T], error) {
	var m Message[T]

	err := sonic.Unmarshal(b, &m)

	return m, err
}

// NewWatermillMessage 构造一个 watermill 消息，设置 ID 与元数据.
func NewWatermillMessage[T any](topic string, payload T, opts ...func(*EventHeader)) (*message.Message, error) {
	header := NewEventHeader(topic, opts...)
	env := Message[T]{Header: header, Payload: payload}

	data, err := Encode(env)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("topic", topic)

	if header.TraceID != "" {
		msg.Metadata.Set("trace_id", header.TraceID)
	}

	if header.Producer != "" {
		msg.Metadata.Set("producer", header.Producer)
	}

	msg.Metadata.Set("occurred_at", header.OccurredAt.Format(time.RFC3339Nano))

	if header.Version != "" {
		msg.Metadata.Set("version", header.Version)
	}

	return msg, nil
}

// ParseWatermillMessage 解出泛型负载.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	return Decode[T](msg.Payload)
}
