package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Traffic 按主题统计 gossip 消息流量
//
// 出站在广播成功后计入，入站在消息投递给应用时计入。
// 并发安全，可在编排循环之外读取。
type Traffic struct {
	totalIn  atomic.Int64
	totalOut atomic.Int64
	msgsIn   atomic.Int64
	msgsOut  atomic.Int64

	totalInRate  *RateMeter
	totalOutRate *RateMeter

	mu     sync.RWMutex
	topics map[string]*topicTraffic

	now func() time.Time
}

// topicTraffic 单个主题的计数器
type topicTraffic struct {
	in, out         atomic.Int64
	msgsIn, msgsOut atomic.Int64
	inRate, outRate *RateMeter
	lastSeen        atomic.Int64 // Unix nano
}

// NewTraffic 创建流量统计
func NewTraffic() *Traffic {
	return newTraffic(time.Now)
}

func newTraffic(now func() time.Time) *Traffic {
	return &Traffic{
		totalInRate:  newRateMeter(now),
		totalOutRate: newRateMeter(now),
		topics:       make(map[string]*topicTraffic),
		now:          now,
	}
}

// LogSent 记录一条发往 topic 的消息
func (t *Traffic) LogSent(topic string, size int) {
	n := int64(size)
	t.totalOut.Add(n)
	t.msgsOut.Add(1)
	t.totalOutRate.Add(n)

	tt := t.topic(topic)
	tt.out.Add(n)
	tt.msgsOut.Add(1)
	tt.outRate.Add(n)
	tt.lastSeen.Store(t.now().UnixNano())
}

// LogRecv 记录一条来自 topic 的消息
func (t *Traffic) LogRecv(topic string, size int) {
	n := int64(size)
	t.totalIn.Add(n)
	t.msgsIn.Add(1)
	t.totalInRate.Add(n)

	tt := t.topic(topic)
	tt.in.Add(n)
	tt.msgsIn.Add(1)
	tt.inRate.Add(n)
	tt.lastSeen.Store(t.now().UnixNano())
}

func (t *Traffic) topic(name string) *topicTraffic {
	t.mu.RLock()
	tt, ok := t.topics[name]
	t.mu.RUnlock()
	if ok {
		return tt
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if tt, ok = t.topics[name]; ok {
		return tt
	}
	tt = &topicTraffic{
		inRate:  newRateMeter(t.now),
		outRate: newRateMeter(t.now),
	}
	t.topics[name] = tt
	return tt
}

// Totals 返回所有主题合计的快照
func (t *Traffic) Totals() Stats {
	return Stats{
		TotalIn:     t.totalIn.Load(),
		TotalOut:    t.totalOut.Load(),
		RateIn:      t.totalInRate.Rate(),
		RateOut:     t.totalOutRate.Rate(),
		MessagesIn:  t.msgsIn.Load(),
		MessagesOut: t.msgsOut.Load(),
	}
}

// ForTopic 返回单个主题的快照，未出现过的主题返回零值
func (t *Traffic) ForTopic(name string) Stats {
	t.mu.RLock()
	tt, ok := t.topics[name]
	t.mu.RUnlock()
	if !ok {
		return Stats{}
	}
	return tt.stats()
}

// ByTopic 返回所有主题的快照
func (t *Traffic) ByTopic() map[string]Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]Stats, len(t.topics))
	for name, tt := range t.topics {
		out[name] = tt.stats()
	}
	return out
}

func (tt *topicTraffic) stats() Stats {
	return Stats{
		TotalIn:     tt.in.Load(),
		TotalOut:    tt.out.Load(),
		RateIn:      tt.inRate.Rate(),
		RateOut:     tt.outRate.Rate(),
		MessagesIn:  tt.msgsIn.Load(),
		MessagesOut: tt.msgsOut.Load(),
	}
}

// TrimIdle 删除自 since 以来没有流量的主题，返回删除数量
//
// 全局合计不受影响。
func (t *Traffic) TrimIdle(since time.Time) int {
	cutoff := since.UnixNano()

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for name, tt := range t.topics {
		if tt.lastSeen.Load() < cutoff {
			delete(t.topics, name)
			removed++
		}
	}
	return removed
}
