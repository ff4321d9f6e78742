package types

import (
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// ============================================================================
//                              Event - 网络栈事件
// ============================================================================

// EventKind 事件类型
type EventKind int

const (
	// KindOther 编排层不消费的事件
	KindOther EventKind = iota
	// KindListenAddr 监听地址已绑定
	KindListenAddr
	// KindIdentify 身份交换完成
	KindIdentify
	// KindMessage 收到 gossip 消息
	KindMessage
)

// String 返回事件类型的字符串表示
func (k EventKind) String() string {
	switch k {
	case KindListenAddr:
		return "listen_addr"
	case KindIdentify:
		return "identify"
	case KindMessage:
		return "message"
	default:
		return "other"
	}
}

// Event 网络栈事件
//
// 变体集合是封闭的：只有本包定义的事件类型实现该接口。
// 编排层不关心的事件统一以 OtherEvent 表示。
type Event interface {
	Kind() EventKind
	sealed()
}

// ListenAddrEvent 传输层开始在某个地址上监听
type ListenAddrEvent struct {
	Addr ma.Multiaddr
}

// Kind 实现 Event
func (ListenAddrEvent) Kind() EventKind { return KindListenAddr }
func (ListenAddrEvent) sealed()         {}

// IdentifyEvent 身份交换协议收到远端信息
type IdentifyEvent struct {
	// Peer 远端节点 ID
	Peer peer.ID

	// PublicKey 远端公钥（libp2p protobuf 编码）
	PublicKey []byte

	// ListenAddrs 远端声明的监听地址
	ListenAddrs []ma.Multiaddr

	// ObservedAddr 本端观测到的远端地址
	ObservedAddr ma.Multiaddr

	// AgentVersion 远端自报的代理版本字符串
	AgentVersion string
}

// Kind 实现 Event
func (IdentifyEvent) Kind() EventKind { return KindIdentify }
func (IdentifyEvent) sealed()         {}

// MessageEvent gossip 子协议投递的消息
type MessageEvent struct {
	// Source 发布者；匿名发布时 HasSource 为 false
	Source    peer.ID
	HasSource bool

	// Topic 线路上的主题标识
	Topic TopicID

	// Data 原始负载
	Data []byte
}

// Kind 实现 Event
func (MessageEvent) Kind() EventKind { return KindMessage }
func (MessageEvent) sealed()         {}

// OtherEvent 编排层忽略的其他事件
type OtherEvent struct {
	// Name 事件名称（仅用于调试日志）
	Name string
}

// Kind 实现 Event
func (OtherEvent) Kind() EventKind { return KindOther }
func (OtherEvent) sealed()         {}
