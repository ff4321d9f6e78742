// Package peerset 维护已准入节点集合
//
// 集合只由编排循环在收到接受决定后修改；对外通过快照读取。
package peerset

import (
	"sort"
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/prometheus/client_golang/prometheus"
)

// Set 已准入节点集合
//
// 写入只发生在编排循环内；读锁供 Node.Peers 等并发快照使用。
type Set struct {
	mu    sync.RWMutex
	peers map[peer.ID]struct{}
	gauge prometheus.Gauge
}

// New 创建节点集合
//
// gauge 可为 nil。
func New(gauge prometheus.Gauge) *Set {
	return &Set{
		peers: make(map[peer.ID]struct{}),
		gauge: gauge,
	}
}

// Add 加入节点，返回是否为新节点
func (s *Set) Add(p peer.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.peers[p]; ok {
		return false
	}
	s.peers[p] = struct{}{}
	s.report()
	return true
}

// Contains 检查节点是否已准入
func (s *Set) Contains(p peer.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.peers[p]
	return ok
}

// Len 返回节点数
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Snapshot 返回按字符串排序的节点列表
func (s *Set) Snapshot() []peer.ID {
	s.mu.RLock()
	out := make([]peer.ID, 0, len(s.peers))
	for p := range s.peers {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Set) report() {
	if s.gauge != nil {
		s.gauge.Set(float64(len(s.peers)))
	}
}
