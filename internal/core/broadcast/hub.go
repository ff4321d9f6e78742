package broadcast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/pragmalink/go-pragmalink/pkg/lib/log"
)

var logger = log.Logger("core/broadcast")

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrNoReceivers 所有接收者已关闭，广播通道不会再有接收者
	ErrNoReceivers = errors.New("broadcast: no receivers")

	// ErrSealed 广播通道已封存，不能再订阅
	ErrSealed = errors.New("broadcast: hub sealed")

	// ErrReceiverClosed 接收者已关闭
	ErrReceiverClosed = errors.New("broadcast: receiver closed")
)

// DefaultCapacity 默认的接收者缓冲区容量
const DefaultCapacity = 1000

// ============================================================================
// Hub 实现
// ============================================================================

// Hub 多消费者广播通道
type Hub[T any] struct {
	mu       sync.Mutex
	capacity int
	sinks    []*Receiver[T]
	sealed   bool

	// clone 为每个接收者复制值；nil 时所有接收者共享同一个值
	clone func(T) T

	// dropCount 因缓冲区满被挤出的消息总数（用于慢消费者警告）
	dropCount atomic.Int64
}

// Option 广播通道选项
type Option[T any] func(*Hub[T])

// WithClone 设置复制函数，Send 为每个接收者投递一份独立副本
//
// 值内含切片或映射、且接收者可能修改它们时使用。
func WithClone[T any](clone func(T) T) Option[T] {
	return func(h *Hub[T]) {
		h.clone = clone
	}
}

// New 创建广播通道
//
// capacity <= 0 时使用 DefaultCapacity。
func New[T any](capacity int, opts ...Option[T]) *Hub[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	h := &Hub[T]{capacity: capacity}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe 创建新的接收者
func (h *Hub[T]) Subscribe() (*Receiver[T], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sealed {
		return nil, ErrSealed
	}

	r := &Receiver[T]{
		hub: h,
		out: make(chan T, h.capacity),
	}
	h.sinks = append(h.sinks, r)
	return r, nil
}

// Send 发送值到所有接收者，返回接收者数量
//
// 发送永不阻塞：接收者缓冲区满时挤出其最旧的值。
// 未设置 WithClone 时所有接收者拿到同一个值，值内的切片应视为只读。
func (h *Hub[T]) Send(v T) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sealed {
		return 0, ErrNoReceivers
	}

	for _, r := range h.sinks {
		item := v
		if h.clone != nil {
			item = h.clone(v)
		}
		if r.push(item) {
			dropped := h.dropCount.Add(1)

			// 每丢弃 100 条警告一次，避免日志泛滥
			if dropped%100 == 1 {
				logger.Warn("慢消费者检测",
					"dropped", dropped,
					"capacity", h.capacity,
					"reason", "receiver buffer full, oldest message evicted")
			}
		}
	}
	return len(h.sinks), nil
}

// Sealed 检查广播通道是否已封存
func (h *Hub[T]) Sealed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sealed
}

// Close 封存广播通道并关闭所有接收者
func (h *Hub[T]) Close() {
	h.mu.Lock()
	sinks := h.sinks
	h.sinks = nil
	h.sealed = true
	h.mu.Unlock()

	for _, r := range sinks {
		r.closeOnce.Do(func() { close(r.out) })
	}
}

// removeSub 移除接收者，最后一个接收者离开时封存
func (h *Hub[T]) removeSub(r *Receiver[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, s := range h.sinks {
		if s == r {
			h.sinks = append(h.sinks[:i], h.sinks[i+1:]...)
			break
		}
	}
	// 在持锁状态下关闭，保证 Send 不会写入已关闭的通道
	r.closeOnce.Do(func() { close(r.out) })

	if len(h.sinks) == 0 && !h.sealed {
		h.sealed = true
		logger.Debug("最后一个接收者已关闭，广播通道封存")
	}
}

// ============================================================================
// Receiver 实现
// ============================================================================

// Receiver 广播接收者
type Receiver[T any] struct {
	hub       *Hub[T]
	out       chan T
	lagged    atomic.Uint64
	closeOnce sync.Once
}

// push 写入一个值，缓冲区满时挤出最旧的值；返回是否发生挤出
//
// 调用方必须持有 hub.mu。
func (r *Receiver[T]) push(v T) bool {
	evicted := false
	for {
		select {
		case r.out <- v:
			return evicted
		default:
		}
		select {
		case <-r.out:
			r.lagged.Add(1)
			evicted = true
		default:
		}
	}
}

// C 返回接收通道；接收者或广播通道关闭后通道关闭
func (r *Receiver[T]) C() <-chan T {
	return r.out
}

// Recv 接收下一个值
func (r *Receiver[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	select {
	case v, ok := <-r.out:
		if !ok {
			return zero, ErrReceiverClosed
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Lagged 返回因消费过慢被挤出的消息数
func (r *Receiver[T]) Lagged() uint64 {
	return r.lagged.Load()
}

// Close 关闭接收者
//
// Close 是并发安全的，可以多次调用。
func (r *Receiver[T]) Close() error {
	r.hub.removeSub(r)
	return nil
}
