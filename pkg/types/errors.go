package types

import "errors"

// 公共错误定义
var (
	// ErrEmptyTopic 主题名为空
	ErrEmptyTopic = errors.New("empty topic name")

	// ErrNotSubscribed 未订阅的主题
	ErrNotSubscribed = errors.New("topic not subscribed")

	// ErrMessageTooLarge 负载超过 gossip 消息大小限制
	ErrMessageTooLarge = errors.New("message exceeds gossip size limit")
)
