package libp2p

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lp2p "github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/host/eventbus"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	"github.com/libp2p/go-libp2p/p2p/security/noise"
	libp2ptls "github.com/libp2p/go-libp2p/p2p/security/tls"
	quic "github.com/libp2p/go-libp2p/p2p/transport/quic"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/multierr"

	pkgif "github.com/pragmalink/go-pragmalink/pkg/interfaces"
	"github.com/pragmalink/go-pragmalink/pkg/lib/log"
	"github.com/pragmalink/go-pragmalink/pkg/types"
)

var logger = log.Logger("stack/libp2p")

// 错误定义
var (
	// ErrNoPrivateKey 未提供私钥
	ErrNoPrivateKey = errors.New("libp2p: private key required")

	// ErrMissingPeerID 拨号地址缺少 /p2p/<id>
	ErrMissingPeerID = errors.New("libp2p: dial address must end with /p2p/<peer id>")

	// ErrStackClosed 网络栈已关闭
	ErrStackClosed = errors.New("libp2p: stack closed")
)

// Stack 基于 go-libp2p 的网络栈
type Stack struct {
	cfg Config

	host host.Host
	kad  *dht.IpfsDHT
	ps   *pubsub.PubSub
	sub  event.Subscription

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
	subs   map[string]*pubsub.Subscription

	events chan types.Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

var _ pkgif.Stack = (*Stack)(nil)

// New 创建 libp2p 网络栈
//
// host 创建时不监听任何地址，由编排层调用 Listen。
func New(cfg Config) (*Stack, error) {
	if cfg.PrivateKey == nil {
		return nil, ErrNoPrivateKey
	}
	cfg = cfg.withDefaults()

	cm, err := connmgr.NewConnManager(cfg.ConnLow, cfg.ConnHigh)
	if err != nil {
		return nil, fmt.Errorf("connmgr: %w", err)
	}

	h, err := lp2p.New(
		lp2p.Identity(cfg.PrivateKey),
		lp2p.NoListenAddrs,
		lp2p.UserAgent(cfg.AgentVersion),
		lp2p.Transport(tcp.NewTCPTransport),
		lp2p.Transport(quic.NewTransport),
		lp2p.Security(noise.ID, noise.New),
		lp2p.Security(libp2ptls.ID, libp2ptls.New),
		lp2p.ConnectionManager(cm),
	)
	if err != nil {
		return nil, fmt.Errorf("libp2p host: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Stack{
		cfg:    cfg,
		host:   h,
		topics: make(map[string]*pubsub.Topic),
		subs:   make(map[string]*pubsub.Subscription),
		events: make(chan types.Event, eventBuffer),
		ctx:    ctx,
		cancel: cancel,
	}

	fail := func(err error) (*Stack, error) {
		cancel()
		return nil, multierr.Append(err, s.closeComponents())
	}

	s.kad, err = dht.New(ctx, h,
		dht.Mode(dht.ModeServer),
		dht.V1ProtocolOverride(protocol.ID(cfg.KadProtocol)),
		dht.BootstrapPeers(),
	)
	if err != nil {
		return fail(fmt.Errorf("dht: %w", err))
	}

	s.ps, err = pubsub.NewGossipSub(ctx, h,
		pubsub.WithMessageSignaturePolicy(pubsub.StrictSign),
		pubsub.WithMaxMessageSize(cfg.MaxMessageSize),
	)
	if err != nil {
		return fail(fmt.Errorf("gossipsub: %w", err))
	}

	s.sub, err = h.EventBus().Subscribe([]interface{}{
		new(event.EvtPeerIdentificationCompleted),
		new(event.EvtLocalAddressesUpdated),
	}, eventbus.BufSize(eventBuffer))
	if err != nil {
		return fail(fmt.Errorf("eventbus subscribe: %w", err))
	}

	s.wg.Add(1)
	go s.pumpHostEvents()

	logger.Info("libp2p 网络栈已创建", "peer", h.ID(), "agent", cfg.AgentVersion, "kad", cfg.KadProtocol)
	return s, nil
}

// Host 返回底层 host
func (s *Stack) Host() host.Host {
	return s.host
}

// ============================================================================
//                              Transport
// ============================================================================

// ID 返回本地节点 ID
func (s *Stack) ID() peer.ID {
	return s.host.ID()
}

// Listen 开始在地址上监听
func (s *Stack) Listen(addr ma.Multiaddr) error {
	if s.ctx.Err() != nil {
		return ErrStackClosed
	}
	return s.host.Network().Listen(addr)
}

// Dial 连接远端节点
//
// 地址必须带 /p2p/<id> 后缀。
func (s *Stack) Dial(ctx context.Context, addr ma.Multiaddr) error {
	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMissingPeerID, addr)
	}
	return s.host.Connect(ctx, *info)
}

// ============================================================================
//                              Routing
// ============================================================================

// AddAddress 向 DHT 路由表添加节点
func (s *Stack) AddAddress(p peer.ID, addr ma.Multiaddr) error {
	if addr != nil {
		s.host.Peerstore().AddAddr(p, addr, peerstore.PermanentAddrTTL)
	}
	added, err := s.kad.RoutingTable().TryAddPeer(p, true, false)
	if err != nil {
		return fmt.Errorf("routing table: %w", err)
	}
	if !added {
		logger.Debug("节点已在路由表中", "peer", p)
	}
	return nil
}

// ============================================================================
//                              Gossip
// ============================================================================

// TopicID gossipsub 的主题标识就是主题名
func (s *Stack) TopicID(name string) types.TopicID {
	return types.TopicID(name)
}

// Subscribe 加入并订阅主题
func (s *Stack) Subscribe(name string) (types.TopicID, error) {
	if name == "" {
		return "", types.ErrEmptyTopic
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return "", ErrStackClosed
	}
	if _, ok := s.subs[name]; ok {
		return s.TopicID(name), nil
	}

	topic, err := s.ps.Join(name)
	if err != nil {
		return "", fmt.Errorf("join %q: %w", name, err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		_ = topic.Close()
		return "", fmt.Errorf("subscribe %q: %w", name, err)
	}
	s.topics[name] = topic
	s.subs[name] = sub

	s.wg.Add(1)
	go s.pumpMessages(sub)
	return s.TopicID(name), nil
}

// Publish 向主题发布负载
func (s *Stack) Publish(ctx context.Context, id types.TopicID, data []byte) error {
	if len(data) > s.cfg.MaxMessageSize {
		return fmt.Errorf("%w: %d > %d", types.ErrMessageTooLarge, len(data), s.cfg.MaxMessageSize)
	}
	s.mu.Lock()
	topic, ok := s.topics[string(id)]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrNotSubscribed, id)
	}
	return topic.Publish(ctx, data)
}

// AddExplicitPeer 保护节点连接，使其不被连接管理器裁剪
//
// 不会成为 gossipsub 直连节点：pubsub 只在构造时通过 WithDirectPeers
// 接受直连节点。该节点经正常 GRAFT 进入 mesh。
func (s *Stack) AddExplicitPeer(p peer.ID) {
	cm := s.host.ConnManager()
	cm.Protect(p, explicitTag)
	cm.TagPeer(p, explicitTag, 100)
}

// ============================================================================
//                              事件
// ============================================================================

// Events 返回事件流
//
// Close 之后通道被关闭。
func (s *Stack) Events() <-chan types.Event {
	return s.events
}

func (s *Stack) emit(ev types.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// pumpHostEvents 把 eventbus 事件转换为网络栈事件
func (s *Stack) pumpHostEvents() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case e, ok := <-s.sub.Out():
			if !ok {
				return
			}
			for _, ev := range s.translate(e) {
				if !s.emit(ev) {
					return
				}
			}
		}
	}
}

func (s *Stack) translate(e interface{}) []types.Event {
	switch e := e.(type) {
	case event.EvtPeerIdentificationCompleted:
		ev, err := identifyEvent(e)
		if err != nil {
			logger.Warn("忽略无法解析的身份交换事件", "peer", e.Peer, "err", err)
			return nil
		}
		return []types.Event{ev}
	case event.EvtLocalAddressesUpdated:
		var out []types.Event
		for _, u := range e.Current {
			if u.Action == event.Added {
				out = append(out, types.ListenAddrEvent{Addr: u.Address})
			}
		}
		return out
	default:
		return []types.Event{types.OtherEvent{Name: fmt.Sprintf("%T", e)}}
	}
}

// identifyEvent 构造身份事件
//
// 观测地址取连接的远端地址，即本端看到的对方地址。
func identifyEvent(e event.EvtPeerIdentificationCompleted) (types.IdentifyEvent, error) {
	if e.Conn == nil {
		return types.IdentifyEvent{}, errors.New("missing connection")
	}
	pub := e.Conn.RemotePublicKey()
	if pub == nil {
		return types.IdentifyEvent{}, errors.New("missing remote public key")
	}
	raw, err := crypto.MarshalPublicKey(pub)
	if err != nil {
		return types.IdentifyEvent{}, err
	}
	return types.IdentifyEvent{
		Peer:         e.Peer,
		PublicKey:    raw,
		ListenAddrs:  e.ListenAddrs,
		ObservedAddr: e.Conn.RemoteMultiaddr(),
		AgentVersion: e.AgentVersion,
	}, nil
}

// pumpMessages 把订阅收到的消息转换为网络栈事件
func (s *Stack) pumpMessages(sub *pubsub.Subscription) {
	defer s.wg.Done()
	self := s.host.ID()
	for {
		msg, err := sub.Next(s.ctx)
		if err != nil {
			// 订阅被取消或网络栈关闭
			return
		}
		if msg.ReceivedFrom == self {
			continue
		}
		from := msg.GetFrom()
		if !s.emit(types.MessageEvent{
			Source:    from,
			HasSource: from != "",
			Topic:     types.TopicID(msg.GetTopic()),
			Data:      msg.Data,
		}) {
			return
		}
	}
}

// ============================================================================
//                              生命周期
// ============================================================================

// Close 关闭网络栈并关闭事件流
func (s *Stack) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()

		s.mu.Lock()
		for name, sub := range s.subs {
			sub.Cancel()
			if t := s.topics[name]; t != nil {
				_ = t.Close()
			}
		}
		s.mu.Unlock()

		s.closeErr = s.closeComponents()
		s.wg.Wait()
		close(s.events)
		logger.Info("libp2p 网络栈已关闭")
	})
	return s.closeErr
}

func (s *Stack) closeComponents() error {
	var err error
	if s.sub != nil {
		err = multierr.Append(err, s.sub.Close())
	}
	if s.kad != nil {
		err = multierr.Append(err, s.kad.Close())
	}
	return multierr.Append(err, s.host.Close())
}
