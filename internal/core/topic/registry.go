// Package topic 维护主题名与线路标识之间的双向映射
//
// 线路标识由 gossip 子协议派生；Registry 只记录订阅时得到的
// (名称, 标识) 对，是标识到名称的唯一反查来源。Registry 由编排循环
// 单线程持有，不加锁。
package topic

import (
	"errors"
	"fmt"
	"sort"

	pkgif "github.com/pragmalink/go-pragmalink/pkg/interfaces"
	"github.com/pragmalink/go-pragmalink/pkg/lib/log"
	"github.com/pragmalink/go-pragmalink/pkg/types"
)

var logger = log.Logger("core/topic")

// ErrSubscription 订阅失败
var ErrSubscription = errors.New("topic subscription failed")

// Registry 主题注册表
type Registry struct {
	gossip pkgif.Gossip

	byName map[string]types.TopicID
	byID   map[types.TopicID]string
}

// NewRegistry 创建主题注册表
func NewRegistry(gossip pkgif.Gossip) *Registry {
	return &Registry{
		gossip: gossip,
		byName: make(map[string]types.TopicID),
		byID:   make(map[types.TopicID]string),
	}
}

// Subscribe 订阅主题并返回线路标识
//
// 幂等：已订阅的主题直接返回记录的标识，不再调用 gossip。
func (r *Registry) Subscribe(name string) (types.TopicID, error) {
	if id, ok := r.byName[name]; ok {
		return id, nil
	}

	id, err := r.gossip.Subscribe(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrSubscription, name, err)
	}

	r.byName[name] = id
	r.byID[id] = name
	logger.Debug("已订阅主题", "topic", name, "id", id)
	return id, nil
}

// Resolve 根据线路标识查找主题名
//
// 未找到不是错误：表示本节点没有记录的主题，调用方应丢弃消息。
func (r *Registry) Resolve(id types.TopicID) (string, bool) {
	name, ok := r.byID[id]
	return name, ok
}

// Topics 返回已订阅主题名（已排序）
func (r *Registry) Topics() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len 返回已订阅主题数量
func (r *Registry) Len() int {
	return len(r.byName)
}
