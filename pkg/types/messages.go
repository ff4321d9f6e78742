package types

import (
	"bytes"

	"github.com/libp2p/go-libp2p/core/peer"
)

// InboundMessage 投递给应用的消息
type InboundMessage struct {
	// Source 发送者；匿名发布时 HasSource 为 false
	Source    peer.ID
	HasSource bool

	// Topic 经 TopicRegistry 解析后的主题名
	Topic string

	// Data 原始负载
	Data []byte
}

// Clone 返回拥有独立 Data 的副本
func (m InboundMessage) Clone() InboundMessage {
	m.Data = bytes.Clone(m.Data)
	return m
}

// ============================================================================
//                              OutboundRequest
// ============================================================================

// OutboundRequest 应用发往节点的命令
//
// 当前只有 Broadcast 一个变体。
type OutboundRequest interface {
	isOutboundRequest()
}

// Broadcast 向主题广播负载
//
// 负载大小只受 gossip 子协议自身的消息大小限制，本地不做检查。
type Broadcast struct {
	Topic string
	Data  []byte
}

func (Broadcast) isOutboundRequest() {}

// NewBroadcast 创建广播请求
func NewBroadcast(topic string, data []byte) Broadcast {
	return Broadcast{Topic: topic, Data: data}
}
