package pragmalink

import (
	"context"
	"fmt"

	"github.com/libp2p/go-libp2p/core/crypto"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/multierr"

	"github.com/pragmalink/go-pragmalink/config"
	"github.com/pragmalink/go-pragmalink/internal/core/admission"
	"github.com/pragmalink/go-pragmalink/internal/core/broadcast"
	"github.com/pragmalink/go-pragmalink/internal/core/identity"
	"github.com/pragmalink/go-pragmalink/internal/core/peerset"
	"github.com/pragmalink/go-pragmalink/internal/core/router"
	p2pstack "github.com/pragmalink/go-pragmalink/internal/core/stack/libp2p"
	"github.com/pragmalink/go-pragmalink/internal/core/storage"
	"github.com/pragmalink/go-pragmalink/internal/core/topic"
	"github.com/pragmalink/go-pragmalink/pkg/lib/log"
	"github.com/pragmalink/go-pragmalink/pkg/types"
)

// New 创建节点
//
// 解析并校验配置、组装网络栈并订阅主题，但不监听也不拨号；
// 调用 Run 启动控制循环。地址或密钥材料格式错误时返回
// ErrInvalidConfig，节点不会被创建。
//
// 示例：
//
//	node, err := pragmalink.New(
//	    pragmalink.WithListenAddress("/ip4/0.0.0.0/tcp/4001"),
//	    pragmalink.WithTopics("prices"),
//	)
func New(opts ...Option) (*Node, error) {
	o := newOptions()
	if err := o.apply(opts...); err != nil {
		return nil, err
	}

	nc, listenAddr, bootstrap, err := resolveOptions(o)
	if err != nil {
		return nil, err
	}

	node := &Node{
		listenAddr: listenAddr,
		bootstrap:  bootstrap,
	}

	app := buildFxApp(nc, node)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("failed to build node: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start components: %w", err)
	}
	node.app = app

	if err := node.assemble(o.config.Messaging); err != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer stopCancel()
		return nil, multierr.Append(err, app.Stop(stopCtx))
	}

	logger.Info("节点已创建",
		"peerID", node.ID().String(),
		"listen", listenAddr.String(),
		"bootstrap", len(bootstrap),
		"topics", node.registry.Len())
	return node, nil
}

// resolveOptions 校验配置并解码地址与密钥材料
func resolveOptions(o *options) (*nodeConfig, ma.Multiaddr, []ma.Multiaddr, error) {
	cfg := o.config
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 身份
	nc := &nodeConfig{
		identity: identity.Config{
			PrivateKey: o.privateKey,
			KeyFile:    cfg.Identity.KeyFile,
		},
		certificate: []byte(cfg.Identity.Certificate),
		stack:       o.stack,
		registerer:  o.registerer,
	}
	if nc.identity.PrivateKey == nil && cfg.Identity.PrivateKey != "" {
		priv, err := identity.DecodePrivateKey(cfg.Identity.PrivateKey)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: private key: %v", ErrInvalidConfig, err)
		}
		nc.identity.PrivateKey = priv
	}
	if len(nc.certificate) > 0 {
		if _, _, err := identity.ParseIssuedCertificate(string(nc.certificate)); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: certificate: %v", ErrInvalidConfig, err)
		}
	}
	if nc.identity.PrivateKey != nil && nc.stack != nil {
		warnIdentityMismatch(nc.identity.PrivateKey, nc)
	}

	// 监听地址
	listen := cfg.Network.ListenAddr
	if listen == "" {
		listen = config.DefaultListenAddr
	}
	if !o.listenSet {
		logger.Warn("未配置监听地址，使用默认值", "addr", listen)
	}
	listenAddr, err := ma.NewMultiaddr(listen)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: listen address %q: %v", ErrInvalidConfig, listen, err)
	}

	// 引导节点
	bootstrap := make([]ma.Multiaddr, 0, len(cfg.Network.BootstrapPeers))
	for _, s := range cfg.Network.BootstrapPeers {
		addr, err := ma.NewMultiaddr(s)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: bootstrap address %q: %v", ErrInvalidConfig, s, err)
		}
		bootstrap = append(bootstrap, addr)
	}
	if len(bootstrap) == 0 {
		logger.Warn("未配置引导节点，只能等待其他节点连接")
	}

	if len(cfg.Messaging.Topics) == 0 {
		logger.Warn("未配置主题，只订阅中心主题", "topic", CentralTopic)
	}

	// 网络栈
	nc.stackConfig = p2pstack.Config{
		KadProtocol:    cfg.Network.KadProtocol,
		MaxMessageSize: cfg.Messaging.MaxMessageSize,
		ConnLow:        cfg.Network.ConnLow,
		ConnHigh:       cfg.Network.ConnHigh,
	}

	// 存储
	if cfg.Storage.DataDir != "" {
		sc := storage.DefaultConfig(cfg.Storage.DataDir)
		nc.storage = &sc
	}

	return nc, listenAddr, bootstrap, nil
}

// warnIdentityMismatch 注入的网络栈与配置的私钥不一致时告警
func warnIdentityMismatch(priv crypto.PrivKey, nc *nodeConfig) {
	id, err := identity.New(priv)
	if err != nil {
		return
	}
	if id.ID() != nc.stack.ID() {
		logger.Warn("注入的网络栈身份与配置的私钥不一致，以网络栈为准",
			"stack", log.TruncateID(nc.stack.ID().String(), 16),
			"key", log.TruncateID(id.ID().String(), 16))
	}
}

// assemble 创建控制循环组件并订阅主题
func (n *Node) assemble(mc config.MessagingConfig) error {
	size := mc.ChannelSize
	if size <= 0 {
		size = config.DefaultChannelSize
	}

	n.registry = topic.NewRegistry(n.stack)
	n.router = router.New(n.stack, n.metrics.PublishFailures, n.metrics.Traffic)
	n.peers = peerset.New(n.metrics.PeerSetSize)
	n.authorizer = admission.New(size, n.metrics)
	n.hub = broadcast.New[types.InboundMessage](size, broadcast.WithClone(types.InboundMessage.Clone))
	n.requests = make(chan types.OutboundRequest, size)

	messages, err := n.hub.Subscribe()
	if err != nil {
		return err
	}
	n.messages = messages

	topics := append([]string{CentralTopic}, mc.Topics...)
	for _, name := range topics {
		if _, err := n.registry.Subscribe(name); err != nil {
			return err
		}
	}
	return nil
}
