package pragmalink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/pragmalink/go-pragmalink/internal/core/admission"
	"github.com/pragmalink/go-pragmalink/internal/core/broadcast"
	"github.com/pragmalink/go-pragmalink/internal/core/metrics"
	"github.com/pragmalink/go-pragmalink/internal/core/peerset"
	"github.com/pragmalink/go-pragmalink/internal/core/router"
	"github.com/pragmalink/go-pragmalink/internal/core/storage"
	"github.com/pragmalink/go-pragmalink/internal/core/topic"
	pkgif "github.com/pragmalink/go-pragmalink/pkg/interfaces"
	"github.com/pragmalink/go-pragmalink/pkg/lib/log"
	"github.com/pragmalink/go-pragmalink/pkg/types"
)

var logger = log.Logger("pragmalink")

// stopTimeout Fx 应用停止超时
const stopTimeout = 15 * time.Second

// ════════════════════════════════════════════════════════════════════════════
//                              节点状态
// ════════════════════════════════════════════════════════════════════════════

// NodeState 节点状态
type NodeState int32

const (
	// StateIdle 已创建，控制循环未运行
	StateIdle NodeState = iota

	// StateRunning 控制循环运行中
	StateRunning

	// StateStopped 控制循环已退出
	StateStopped

	// StateClosed 资源已释放
	StateClosed
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              Node
// ════════════════════════════════════════════════════════════════════════════

// Node P2P 节点
//
// 由 New 创建，Run 运行控制循环。控制循环独占网络栈、主题注册表
// 与节点集合的写操作；应用只通过通道与访问器和节点交互。
type Node struct {
	app *fx.App

	// Fx 注入的组件
	stack   pkgif.Stack
	metrics *metrics.Metrics
	seeds   *storage.SeedBook

	// 构建阶段解析的地址
	listenAddr ma.Multiaddr
	bootstrap  []ma.Multiaddr

	// 控制循环组件
	registry   *topic.Registry
	router     *router.Router
	peers      *peerset.Set
	authorizer *admission.Authorizer

	// 应用通道
	hub      *broadcast.Hub[types.InboundMessage]
	messages *broadcast.Receiver[types.InboundMessage]
	requests chan types.OutboundRequest

	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error
}

// ID 返回本地节点 ID
func (n *Node) ID() peer.ID {
	return n.stack.ID()
}

// State 返回节点状态
func (n *Node) State() NodeState {
	return NodeState(n.state.Load())
}

// ListenAddr 返回配置的监听地址
func (n *Node) ListenAddr() ma.Multiaddr {
	return n.listenAddr
}

// Messages 返回初始消息接收者
//
// 与 Subscribe 创建的接收者相同，缓冲满时丢弃最旧消息。
// 所有接收者都关闭后，下一条入站消息会使 Run 以 ErrNoReceivers 退出。
func (n *Node) Messages() *broadcast.Receiver[types.InboundMessage] {
	return n.messages
}

// Subscribe 创建新的消息接收者
//
// 只接收创建之后投递的消息。每个接收者拿到 Data 的独立副本。
func (n *Node) Subscribe() (*broadcast.Receiver[types.InboundMessage], error) {
	return n.hub.Subscribe()
}

// Requests 返回出站请求通道
//
// 通道有界；满时发送方阻塞直到控制循环取走请求。
func (n *Node) Requests() chan<- types.OutboundRequest {
	return n.requests
}

// Authorizations 返回授权队列
//
// 每个请求必须通过 Accept、Reject 或 Respond 给出决定。
// 调用 Abandon 会使 Run 以 ErrAuthorizationAbandoned 退出。
func (n *Node) Authorizations() <-chan *types.AuthRequest {
	return n.authorizer.Requests()
}

// PendingAuthorizations 返回尚未得到决定的授权请求
//
// 状态为 Received（授权队列已满，等待入队）或 AwaitingVerdict。
func (n *Node) PendingAuthorizations() []admission.Pending {
	return n.authorizer.Pending()
}

// Peers 返回已准入节点（已排序）
func (n *Node) Peers() []peer.ID {
	return n.peers.Snapshot()
}

// Topics 返回已订阅主题名（已排序）
func (n *Node) Topics() []string {
	return n.registry.Topics()
}

// Metrics 返回节点指标
func (n *Node) Metrics() *metrics.Metrics {
	return n.metrics
}

// Close 释放网络栈、存储与消息通道
//
// 应在 Run 返回之后调用；可重复调用。
func (n *Node) Close() error {
	n.closeOnce.Do(func() {
		n.state.Store(int32(StateClosed))
		logger.Info("正在关闭节点", "peerID", log.TruncateID(n.ID().String(), 16))

		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()

		n.hub.Close()
		n.closeErr = multierr.Append(n.closeErr, n.app.Stop(ctx))
	})
	return n.closeErr
}
