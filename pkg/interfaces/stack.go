// Package interfaces 定义 pragmalink 依赖的外部网络栈接口
//
// 编排层只通过这些接口使用网络栈：
//   - Transport: 监听、拨号
//   - Routing:   DHT 路由表
//   - Gossip:    发布订阅
//
// 身份交换协议没有命令面，只通过 Events() 产出 IdentifyEvent。
//
// 实现：
//   - internal/core/stack/libp2p  基于 go-libp2p 的实现
//   - internal/core/stack/memory  进程内实现（测试与仿真）
package interfaces

import (
	"context"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/pragmalink/go-pragmalink/pkg/types"
)

// Transport 传输层命令面
type Transport interface {
	// ID 返回本地节点 ID
	ID() peer.ID

	// Listen 开始在地址上监听
	Listen(addr ma.Multiaddr) error

	// Dial 拨号远端地址
	Dial(ctx context.Context, addr ma.Multiaddr) error
}

// Routing DHT 路由表命令面
type Routing interface {
	// AddAddress 向路由表添加节点地址
	//
	// 路由表条目对 DHT 只是建议性的，失败不影响消息投递。
	AddAddress(p peer.ID, addr ma.Multiaddr) error
}

// Gossip 发布订阅命令面
type Gossip interface {
	// TopicID 根据主题名确定性派生线路标识
	TopicID(name string) types.TopicID

	// Subscribe 订阅主题并返回其线路标识
	Subscribe(name string) (types.TopicID, error)

	// Publish 向主题发布负载
	Publish(ctx context.Context, topic types.TopicID, data []byte) error

	// AddExplicitPeer 将节点加入显式对等列表
	AddExplicitPeer(p peer.ID)
}

// Stack 编排层依赖的完整网络栈
type Stack interface {
	Transport
	Routing
	Gossip

	// Events 返回网络栈事件流
	//
	// 通道关闭表示网络栈已停止。
	Events() <-chan types.Event

	// Close 释放网络栈资源
	Close() error
}
