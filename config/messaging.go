package config

import "fmt"

// DefaultChannelSize 默认通道容量
const DefaultChannelSize = 1000

// MessagingConfig 消息配置
type MessagingConfig struct {
	// Topics 启动时订阅的主题（中心主题总是订阅）
	Topics []string `json:"topics,omitempty"`

	// ChannelSize 入站广播、出站请求与授权队列的容量
	ChannelSize int `json:"channel_size"`

	// MaxMessageSize gossip 消息大小上限（0 使用 gossip 默认值）
	MaxMessageSize int `json:"max_message_size,omitempty"`
}

// DefaultMessagingConfig 返回默认消息配置
func DefaultMessagingConfig() MessagingConfig {
	return MessagingConfig{
		ChannelSize: DefaultChannelSize,
	}
}

// Validate 验证消息配置
func (c MessagingConfig) Validate() error {
	if c.ChannelSize <= 0 {
		return fmt.Errorf("%w: channel_size must be positive", ErrInvalidConfig)
	}
	if c.MaxMessageSize < 0 {
		return fmt.Errorf("%w: max_message_size must not be negative", ErrInvalidConfig)
	}
	for _, t := range c.Topics {
		if t == "" {
			return fmt.Errorf("%w: empty topic name", ErrInvalidConfig)
		}
	}
	return nil
}
