package queue

import "github.com/ThreeDotsLabs/watermill/message"

// Publish 构造信封并发布到 topic.
func Publish[T any](pub message.Publisher, topic string, payload T, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}

// ParseFileStored 将 Watermill 消息解析为 sv.file.stored 信封.
func ParseFileStored(msg *message.Message) (Message[FileStoredPayload], error) {
	return ParseWatermillMessage[FileStoredPayload](msg)
}

// ParseItemDeleted 将 Watermill 消息解析为 sv.item.deleted 信封.
func ParseItemDeleted(msg *message.Message) (Message[ItemDeletedPayload], error) {
	return ParseWatermillMessage[ItemDeletedPayload](msg)
}

// ParseStorageFull 将 Watermill 消息解析为 sv.storage.full 信封.
func ParseStorageFull(msg *message.Message) (Message[StorageFullPayload], error) {
	return ParseWatermillMessage[StorageFullPayload](msg)
}
