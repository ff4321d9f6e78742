package pragmalink

import (
	"context"
	"fmt"

	ma "github.com/multiformats/go-multiaddr"
	"golang.org/x/sync/errgroup"

	"github.com/pragmalink/go-pragmalink/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              控制循环
// ════════════════════════════════════════════════════════════════════════════

// Run 运行控制循环
//
// 先在配置的地址上监听（失败直接返回），再并发拨号所有引导节点与
// 种子簿中的节点（失败只记录日志），然后处理出站请求、网络栈事件
// 与授权结果，直到 ctx 取消或出现致命错误。
//
// 返回值：
//   - ctx 取消时返回 ctx.Err()
//   - ErrAuthorizationAbandoned: 授权请求被放弃
//   - ErrNoReceivers: 所有消息接收者都已关闭
//   - ErrStackClosed: 网络栈事件流意外结束
//
// 每个节点只能运行一次。
func (n *Node) Run(ctx context.Context) error {
	if !n.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		if n.State() == StateClosed {
			return ErrNodeClosed
		}
		return ErrAlreadyRunning
	}
	defer n.state.CompareAndSwap(int32(StateRunning), int32(StateStopped))

	if err := n.stack.Listen(n.listenAddr); err != nil {
		return fmt.Errorf("%w on %s: %v", ErrListen, n.listenAddr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	dialed := n.dialAll(ctx)
	defer func() {
		cancel()
		<-dialed
		n.authorizer.Wait()
	}()

	return n.loop(ctx)
}

// loop 事件循环
//
// select 在就绪的分支间随机选择，任何一个来源都不会饿死其他来源。
func (n *Node) loop(ctx context.Context) error {
	events := n.stack.Events()
	outcomes := n.authorizer.Outcomes()
	var requests <-chan types.OutboundRequest = n.requests

	for {
		select {
		case <-ctx.Done():
			logger.Info("控制循环退出", "reason", ctx.Err())
			return ctx.Err()

		case req, ok := <-requests:
			if !ok {
				logger.Warn("出站请求通道已关闭")
				requests = nil
				continue
			}
			// 失败已在 router 中记录
			_ = n.router.Handle(ctx, req)

		case ev, ok := <-events:
			if !ok {
				logger.Error("网络栈事件流已结束")
				return ErrStackClosed
			}
			if err := n.handleEvent(ctx, ev); err != nil {
				return err
			}

		case out := <-outcomes:
			if err := n.applyOutcome(out); err != nil {
				return err
			}
		}
	}
}

// dialAll 并发拨号引导节点与种子节点
//
// 返回的通道在所有拨号结束后关闭。
func (n *Node) dialAll(ctx context.Context) <-chan struct{} {
	addrs := append([]ma.Multiaddr(nil), n.bootstrap...)
	if n.seeds != nil {
		seeds, err := n.seeds.DialAddrs()
		if err != nil {
			logger.Warn("读取种子簿失败", "error", err)
		} else {
			addrs = appendUnique(addrs, seeds...)
		}
	}

	done := make(chan struct{})
	if len(addrs) == 0 {
		close(done)
		return done
	}

	go func() {
		defer close(done)

		var g errgroup.Group
		for _, addr := range addrs {
			addr := addr
			g.Go(func() error {
				if err := n.stack.Dial(ctx, addr); err != nil {
					logger.Warn("拨号失败", "addr", addr.String(), "error", err)
					return nil
				}
				logger.Debug("拨号成功", "addr", addr.String())
				return nil
			})
		}
		_ = g.Wait()
	}()
	return done
}

// appendUnique 追加不重复的地址
func appendUnique(dst []ma.Multiaddr, addrs ...ma.Multiaddr) []ma.Multiaddr {
	for _, a := range addrs {
		dup := false
		for _, d := range dst {
			if d.Equal(a) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, a)
		}
	}
	return dst
}
