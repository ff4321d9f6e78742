// Package router 执行应用发来的出站请求
package router

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pragmalink/go-pragmalink/internal/core/metrics"
	pkgif "github.com/pragmalink/go-pragmalink/pkg/interfaces"
	"github.com/pragmalink/go-pragmalink/pkg/lib/log"
	"github.com/pragmalink/go-pragmalink/pkg/types"
)

var logger = log.Logger("core/router")

// Router 出站请求路由
//
// 由编排循环单线程调用。
type Router struct {
	gossip   pkgif.Gossip
	failures prometheus.Counter
	traffic  *metrics.Traffic
}

// New 创建路由
//
// failures 和 traffic 可为 nil。
func New(gossip pkgif.Gossip, failures prometheus.Counter, traffic *metrics.Traffic) *Router {
	return &Router{gossip: gossip, failures: failures, traffic: traffic}
}

// Handle 处理一个出站请求
//
// 发布失败只记录日志并计数，编排循环忽略返回的错误。
func (r *Router) Handle(ctx context.Context, req types.OutboundRequest) error {
	switch req := req.(type) {
	case types.Broadcast:
		return r.broadcast(ctx, req)
	case *types.Broadcast:
		if req == nil {
			return nil
		}
		return r.broadcast(ctx, *req)
	default:
		logger.Warn("忽略未知出站请求", "type", fmt.Sprintf("%T", req))
		return nil
	}
}

func (r *Router) broadcast(ctx context.Context, req types.Broadcast) error {
	// 标识由 gossip 子协议重新派生，不查注册表
	id := r.gossip.TopicID(req.Topic)
	if err := r.gossip.Publish(ctx, id, req.Data); err != nil {
		if r.failures != nil {
			r.failures.Inc()
		}
		logger.Warn("广播失败", "topic", req.Topic, "size", len(req.Data), "err", err)
		return err
	}
	if r.traffic != nil {
		r.traffic.LogSent(req.Topic, len(req.Data))
	}
	logger.Debug("广播成功", "topic", req.Topic, "size", len(req.Data))
	return nil
}
