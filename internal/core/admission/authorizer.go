// Package admission 实现连接授权
//
// 每个完成身份交换的远端节点都要经过外部决策者的异步授权：
//
//	Received → AwaitingVerdict → {Admitted | Rejected | Failed}
//
// 编排循环调用 Submit 把请求放入有界授权队列，然后由一个独立 goroutine
// 等待该请求的决定，并通过 Outcomes 通道把终态交回编排循环。
// 本包不修改网络栈或节点集合，Outcome 由编排循环应用。
package admission

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pragmalink/go-pragmalink/internal/core/metrics"
	"github.com/pragmalink/go-pragmalink/pkg/lib/log"
	"github.com/pragmalink/go-pragmalink/pkg/types"
)

var logger = log.Logger("core/admission")

// DefaultQueueSize 默认授权队列容量
const DefaultQueueSize = 1000

// Authorizer 连接授权器
type Authorizer struct {
	queue    chan *types.AuthRequest
	outcomes chan Outcome
	metrics  *metrics.Metrics

	// 尚未得到终态的请求，按请求 ID 索引
	mu      sync.Mutex
	pending map[string]Pending

	wg sync.WaitGroup
}

// Pending 尚未得到终态的授权请求
type Pending struct {
	Record types.PeerRecord
	State  State
}

// New 创建授权器
//
// size <= 0 时使用 DefaultQueueSize；m 为 nil 时使用独立指标。
func New(size int, m *metrics.Metrics) *Authorizer {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Authorizer{
		queue:    make(chan *types.AuthRequest, size),
		outcomes: make(chan Outcome, size),
		metrics:  m,
		pending:  make(map[string]Pending),
	}
}

// Requests 返回授权队列的消费端
//
// 外部决策者从这里读取请求，并通过请求的 Accept/Reject 给出决定。
func (a *Authorizer) Requests() <-chan *types.AuthRequest {
	return a.queue
}

// Outcomes 返回授权终态通道，由编排循环消费
func (a *Authorizer) Outcomes() <-chan Outcome {
	return a.outcomes
}

// Submit 处理一个身份事件
//
// 公钥无效时返回错误，不发起授权（非致命）。队列已满时阻塞，
// 直到有空位或 ctx 取消。入队后启动 goroutine 等待决定。
func (a *Authorizer) Submit(ctx context.Context, ev types.IdentifyEvent) error {
	rec, err := BuildRecord(ev)
	if err != nil {
		a.metrics.AdmissionOutcomes.WithLabelValues(metrics.StateInvalid).Inc()
		return err
	}

	req := types.NewAuthRequest(rec)
	a.track(req.Record, StateReceived)
	select {
	case a.queue <- req:
	case <-ctx.Done():
		a.untrack(req.Record.RequestID)
		return ctx.Err()
	}

	a.track(req.Record, StateAwaitingVerdict)
	a.metrics.PendingAuthorizations.Inc()
	logger.Debug("等待授权决定",
		"peer", log.TruncateID(rec.ID.String(), 16),
		"request", rec.RequestID,
		"certified", rec.HasCertificate)

	a.wg.Add(1)
	go a.await(ctx, req)
	return nil
}

// await 等待单个请求的决定
func (a *Authorizer) await(ctx context.Context, req *types.AuthRequest) {
	defer a.wg.Done()
	defer a.metrics.PendingAuthorizations.Dec()

	out := Outcome{Record: req.Record}
	select {
	case verdict, ok := <-req.Verdict():
		switch {
		case !ok:
			out.State = StateFailed
			out.Err = fmt.Errorf("%w: peer %s", ErrAbandoned, req.Record.ID)
		case verdict:
			out.State = StateAdmitted
		default:
			out.State = StateRejected
		}
	case <-ctx.Done():
		a.untrack(req.Record.RequestID)
		return
	}

	// 先移出跟踪再交付终态，Outcomes 的消费者不会再看到该请求处于等待中
	a.untrack(req.Record.RequestID)
	a.metrics.AdmissionOutcomes.WithLabelValues(out.State.String()).Inc()

	select {
	case a.outcomes <- out:
	case <-ctx.Done():
	}
}

// State 返回请求的当前状态
//
// 只跟踪 Received 与 AwaitingVerdict；请求得到终态或被取消后返回 false，
// 终态通过 Outcomes 获取。
func (a *Authorizer) State(requestID string) (State, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pending[requestID]
	return p.State, ok
}

// Pending 返回尚未得到终态的请求（按请求 ID 排序）
func (a *Authorizer) Pending() []Pending {
	a.mu.Lock()
	out := make([]Pending, 0, len(a.pending))
	for _, p := range a.pending {
		out = append(out, p)
	}
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Record.RequestID < out[j].Record.RequestID
	})
	return out
}

func (a *Authorizer) track(rec types.PeerRecord, st State) {
	a.mu.Lock()
	a.pending[rec.RequestID] = Pending{Record: rec, State: st}
	a.mu.Unlock()
}

func (a *Authorizer) untrack(requestID string) {
	a.mu.Lock()
	delete(a.pending, requestID)
	a.mu.Unlock()
}

// Wait 等待所有授权 goroutine 退出
//
// 只在提交时使用的 ctx 取消后调用。
func (a *Authorizer) Wait() {
	a.wg.Wait()
}
