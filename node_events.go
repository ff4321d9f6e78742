package pragmalink

import (
	"context"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/pragmalink/go-pragmalink/internal/core/admission"
	"github.com/pragmalink/go-pragmalink/pkg/lib/log"
	"github.com/pragmalink/go-pragmalink/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              事件分发
// ════════════════════════════════════════════════════════════════════════════

// handleEvent 分发网络栈事件，返回非 nil 表示致命错误
func (n *Node) handleEvent(ctx context.Context, ev types.Event) error {
	switch e := ev.(type) {
	case types.ListenAddrEvent:
		n.onListenAddr(e)
	case types.IdentifyEvent:
		return n.onIdentify(ctx, e)
	case types.MessageEvent:
		return n.onMessage(e)
	default:
		logger.Debug("忽略网络栈事件", "kind", ev.Kind().String())
	}
	return nil
}

// onListenAddr 记录带节点 ID 的完整监听地址
func (n *Node) onListenAddr(e types.ListenAddrEvent) {
	full, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{
		ID:    n.ID(),
		Addrs: []ma.Multiaddr{e.Addr},
	})
	if err != nil || len(full) == 0 {
		logger.Info("正在监听", "addr", e.Addr.String())
		return
	}
	logger.Info("正在监听", "addr", full[0].String())
}

// onIdentify 为身份交换完成的节点发起授权
//
// 公钥无效只影响这一次授权；ctx 取消时返回 ctx.Err()。
func (n *Node) onIdentify(ctx context.Context, e types.IdentifyEvent) error {
	err := n.authorizer.Submit(ctx, e)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	logger.Warn("身份信息无效，不发起授权",
		"peer", log.TruncateID(e.Peer.String(), 16),
		"error", err)
	return nil
}

// onMessage 解析主题并投递给应用
func (n *Node) onMessage(e types.MessageEvent) error {
	name, ok := n.registry.Resolve(e.Topic)
	if !ok {
		logger.Debug("未知主题，丢弃消息", "topic", e.Topic.String())
		n.metrics.InboundDropped.Inc()
		return nil
	}

	msg := types.InboundMessage{
		Source:    e.Source,
		HasSource: e.HasSource,
		Topic:     name,
		Data:      e.Data,
	}
	if _, err := n.hub.Send(msg); err != nil {
		logger.Error("所有消息接收者已关闭", "topic", name)
		return err
	}
	n.metrics.InboundDelivered.Inc()
	n.metrics.Traffic.LogRecv(name, len(e.Data))
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              授权结果
// ════════════════════════════════════════════════════════════════════════════

// applyOutcome 应用授权终态
//
// 接受时依次加入 gossip 显式对等列表、DHT 路由表与节点集合；
// 三步不是原子的，路由表失败只记录日志。拒绝不修改任何状态，
// 也不断开连接。请求被放弃是致命错误。
func (n *Node) applyOutcome(out admission.Outcome) error {
	rec := out.Record
	short := log.TruncateID(rec.ID.String(), 16)

	switch out.State {
	case admission.StateAdmitted:
		n.stack.AddExplicitPeer(rec.ID)
		if rec.ObservedAddr != nil {
			if err := n.stack.AddAddress(rec.ID, rec.ObservedAddr); err != nil {
				logger.Warn("加入路由表失败", "peer", short, "error", err)
			}
		}
		n.peers.Add(rec.ID)
		n.rememberSeed(rec)
		logger.Info("节点已准入", "peer", short, "peers", n.peers.Len())

	case admission.StateRejected:
		logger.Info("节点被拒绝", "peer", short, "request", rec.RequestID)

	case admission.StateFailed:
		logger.Error("授权请求被放弃", "peer", short, "request", rec.RequestID)
		if out.Err != nil {
			return out.Err
		}
		return ErrAuthorizationAbandoned
	}
	return nil
}

// rememberSeed 把已准入节点的观测地址写入种子簿
func (n *Node) rememberSeed(rec types.PeerRecord) {
	if n.seeds == nil || rec.ObservedAddr == nil {
		return
	}
	if err := n.seeds.Put(rec.ID, rec.ObservedAddr); err != nil {
		logger.Warn("写入种子簿失败", "peer", log.TruncateID(rec.ID.String(), 16), "error", err)
	}
}
