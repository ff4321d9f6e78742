package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	pkgif "github.com/pragmalink/go-pragmalink/pkg/interfaces"
	"github.com/pragmalink/go-pragmalink/pkg/types"
)

// 错误定义
var (
	// ErrNoListener 目标地址上没有监听者
	ErrNoListener = errors.New("memory: no listener at address")

	// ErrAddrInUse 地址已被占用
	ErrAddrInUse = errors.New("memory: address already in use")

	// ErrInsufficientPeers 没有可以接收消息的对端
	ErrInsufficientPeers = errors.New("memory: insufficient peers")

	// ErrStackClosed 网络栈已关闭
	ErrStackClosed = errors.New("memory: stack closed")

	// ErrSelfDial 拨号自身
	ErrSelfDial = errors.New("memory: dial to self")
)

const (
	// DefaultMaxMessageSize 默认消息大小限制
	DefaultMaxMessageSize = 64 * 1024

	// eventBuffer 事件通道缓冲
	eventBuffer = 1024
)

// Network 进程内网络介质
type Network struct {
	mu        sync.Mutex
	listeners map[string]*Stack
}

// NewNetwork 创建进程内网络
func NewNetwork() *Network {
	return &Network{listeners: make(map[string]*Stack)}
}

func (n *Network) bind(addr ma.Multiaddr, s *Stack) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[addr.String()]; ok {
		return fmt.Errorf("%w: %s", ErrAddrInUse, addr)
	}
	n.listeners[addr.String()] = s
	return nil
}

// lookup 查找监听者；地址末尾的 /p2p 组件被忽略
func (n *Network) lookup(addr ma.Multiaddr) (*Stack, bool) {
	if transport, id := peer.SplitAddr(addr); transport != nil && id != "" {
		addr = transport
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := n.listeners[addr.String()]
	return s, ok
}

// Listening 检查地址上是否有监听者
func (n *Network) Listening(addr ma.Multiaddr) bool {
	_, ok := n.lookup(addr)
	return ok
}

func (n *Network) unbind(s *Stack) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for k, v := range n.listeners {
		if v == s {
			delete(n.listeners, k)
		}
	}
}

// Stack 进程内网络栈
type Stack struct {
	net   *Network
	id    peer.ID
	pub   []byte
	agent string

	// MaxMessageSize 发布负载的上限
	MaxMessageSize int

	mu          sync.Mutex
	listenAddrs []ma.Multiaddr
	conns       map[peer.ID]*Stack
	topics      map[types.TopicID]string
	explicit    map[peer.ID]struct{}
	routing     map[peer.ID][]ma.Multiaddr
	routingErr  error
	published   int

	events       chan types.Event
	emitMu       sync.RWMutex
	eventsClosed bool
	done         chan struct{}
	closeOnce    sync.Once
}

var _ pkgif.Stack = (*Stack)(nil)

// New 创建进程内网络栈
func New(net *Network, priv crypto.PrivKey, agent string) (*Stack, error) {
	id, err := peer.IDFromPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("derive peer id: %w", err)
	}
	pub, err := crypto.MarshalPublicKey(priv.GetPublic())
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return &Stack{
		net:            net,
		id:             id,
		pub:            pub,
		agent:          agent,
		MaxMessageSize: DefaultMaxMessageSize,
		conns:          make(map[peer.ID]*Stack),
		topics:         make(map[types.TopicID]string),
		explicit:       make(map[peer.ID]struct{}),
		routing:        make(map[peer.ID][]ma.Multiaddr),
		events:         make(chan types.Event, eventBuffer),
		done:           make(chan struct{}),
	}, nil
}

// ============================================================================
//                              Transport
// ============================================================================

// ID 返回本地节点 ID
func (s *Stack) ID() peer.ID {
	return s.id
}

// Listen 开始在地址上监听
func (s *Stack) Listen(addr ma.Multiaddr) error {
	if s.isClosed() {
		return ErrStackClosed
	}
	if err := s.net.bind(addr, s); err != nil {
		return err
	}
	s.mu.Lock()
	s.listenAddrs = append(s.listenAddrs, addr)
	s.mu.Unlock()

	s.emit(types.ListenAddrEvent{Addr: addr})
	return nil
}

// Dial 拨号远端地址，成功后双方各产出一条身份事件
func (s *Stack) Dial(ctx context.Context, addr ma.Multiaddr) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.isClosed() {
		return ErrStackClosed
	}
	remote, ok := s.net.lookup(addr)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoListener, addr)
	}
	if remote == s {
		return ErrSelfDial
	}

	s.mu.Lock()
	s.conns[remote.id] = remote
	local := s.identifyInfo()
	s.mu.Unlock()

	remote.mu.Lock()
	remote.conns[s.id] = s
	info := remote.identifyInfo()
	remote.mu.Unlock()

	// 拨号方观测到的是它拨出的地址，监听方观测到拨号方的第一个监听地址
	info.ObservedAddr = addr
	s.emit(info)

	if len(local.ListenAddrs) > 0 {
		local.ObservedAddr = local.ListenAddrs[0]
	}
	remote.emit(local)
	return nil
}

// identifyInfo 构造本节点的身份信息；调用方持有 s.mu
func (s *Stack) identifyInfo() types.IdentifyEvent {
	return types.IdentifyEvent{
		Peer:         s.id,
		PublicKey:    append([]byte(nil), s.pub...),
		ListenAddrs:  append([]ma.Multiaddr(nil), s.listenAddrs...),
		AgentVersion: s.agent,
	}
}

// ============================================================================
//                              Routing
// ============================================================================

// AddAddress 向路由表添加节点地址
func (s *Stack) AddAddress(p peer.ID, addr ma.Multiaddr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.routingErr != nil {
		return s.routingErr
	}
	if addr == nil {
		return errors.New("memory: nil address")
	}
	s.routing[p] = append(s.routing[p], addr)
	return nil
}

// ============================================================================
//                              Gossip
// ============================================================================

// TopicID 按 SHA-256 派生主题标识
func (s *Stack) TopicID(name string) types.TopicID {
	sum := sha256.Sum256([]byte(name))
	return types.TopicID(hex.EncodeToString(sum[:]))
}

// Subscribe 订阅主题
func (s *Stack) Subscribe(name string) (types.TopicID, error) {
	if name == "" {
		return "", types.ErrEmptyTopic
	}
	id := s.TopicID(name)
	s.mu.Lock()
	s.topics[id] = name
	s.mu.Unlock()
	return id, nil
}

// Publish 将消息泛洪给已连接且订阅了主题的对端
func (s *Stack) Publish(ctx context.Context, topic types.TopicID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(data) > s.MaxMessageSize {
		return fmt.Errorf("%w: %d > %d", types.ErrMessageTooLarge, len(data), s.MaxMessageSize)
	}

	s.mu.Lock()
	if _, ok := s.topics[topic]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", types.ErrNotSubscribed, topic)
	}
	peers := make([]*Stack, 0, len(s.conns))
	for _, c := range s.conns {
		peers = append(peers, c)
	}
	s.mu.Unlock()

	delivered := 0
	for _, p := range peers {
		if p.deliver(s.id, topic, data) {
			delivered++
		}
	}
	if delivered == 0 {
		return ErrInsufficientPeers
	}

	s.mu.Lock()
	s.published++
	s.mu.Unlock()
	return nil
}

func (s *Stack) deliver(from peer.ID, topic types.TopicID, data []byte) bool {
	s.mu.Lock()
	_, ok := s.topics[topic]
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.emit(types.MessageEvent{
		Source:    from,
		HasSource: true,
		Topic:     topic,
		Data:      append([]byte(nil), data...),
	})
	return true
}

// AddExplicitPeer 将节点加入显式对等列表
func (s *Stack) AddExplicitPeer(p peer.ID) {
	s.mu.Lock()
	s.explicit[p] = struct{}{}
	s.mu.Unlock()
}

// ============================================================================
//                              事件与生命周期
// ============================================================================

// Events 返回事件流
func (s *Stack) Events() <-chan types.Event {
	return s.events
}

func (s *Stack) emit(ev types.Event) {
	s.emitMu.RLock()
	defer s.emitMu.RUnlock()
	if s.eventsClosed {
		return
	}
	select {
	case <-s.done:
	case s.events <- ev:
	}
}

func (s *Stack) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close 关闭网络栈
func (s *Stack) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.net.unbind(s)

		s.mu.Lock()
		conns := s.conns
		s.conns = make(map[peer.ID]*Stack)
		s.mu.Unlock()

		for _, c := range conns {
			c.mu.Lock()
			delete(c.conns, s.id)
			c.mu.Unlock()
		}
	})
	return nil
}

// ============================================================================
//                              测试钩子
// ============================================================================

// Inject 向事件流注入事件
func (s *Stack) Inject(ev types.Event) {
	s.emit(ev)
}

// CloseEvents 关闭事件流，模拟网络栈意外停止
func (s *Stack) CloseEvents() {
	_ = s.Close()

	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if !s.eventsClosed {
		s.eventsClosed = true
		close(s.events)
	}
}

// ExplicitPeers 返回显式对等列表快照
func (s *Stack) ExplicitPeers() map[peer.ID]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[peer.ID]struct{}, len(s.explicit))
	for p := range s.explicit {
		out[p] = struct{}{}
	}
	return out
}

// RoutingTable 返回路由表快照
func (s *Stack) RoutingTable() map[peer.ID][]ma.Multiaddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[peer.ID][]ma.Multiaddr, len(s.routing))
	for p, addrs := range s.routing {
		out[p] = append([]ma.Multiaddr(nil), addrs...)
	}
	return out
}

// SetRoutingError 让后续 AddAddress 返回 err（nil 恢复正常）
func (s *Stack) SetRoutingError(err error) {
	s.mu.Lock()
	s.routingErr = err
	s.mu.Unlock()
}

// Connected 检查是否与节点相连
func (s *Stack) Connected(p peer.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conns[p]
	return ok
}

// Published 返回成功发布的消息数
func (s *Stack) Published() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published
}
