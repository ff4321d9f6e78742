package libp2p

import (
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
)

const (
	// DefaultKadProtocol 默认 DHT 协议
	DefaultKadProtocol = "/pragma/kad/0.1.0"

	// DefaultConnLow 连接管理器低水位
	DefaultConnLow = 64

	// DefaultConnHigh 连接管理器高水位
	DefaultConnHigh = 256

	// eventBuffer 事件通道缓冲
	eventBuffer = 1024

	// explicitTag 显式对等节点的连接管理器标签
	explicitTag = "pragmalink-explicit"
)

// Config 网络栈配置
type Config struct {
	// PrivateKey 节点私钥（必需）
	PrivateKey crypto.PrivKey

	// AgentVersion 身份交换协议中的代理版本字符串
	AgentVersion string

	// KadProtocol DHT 协议 ID
	KadProtocol string

	// MaxMessageSize gossip 消息大小上限
	MaxMessageSize int

	// ConnLow / ConnHigh 连接管理器水位
	ConnLow  int
	ConnHigh int
}

// withDefaults 填充默认值
func (c Config) withDefaults() Config {
	if c.KadProtocol == "" {
		c.KadProtocol = DefaultKadProtocol
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = pubsub.DefaultMaxMessageSize
	}
	if c.ConnLow <= 0 || c.ConnHigh <= c.ConnLow {
		c.ConnLow, c.ConnHigh = DefaultConnLow, DefaultConnHigh
	}
	return c
}
