package pragmalink

import (
	"fmt"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pragmalink/go-pragmalink/config"
	pkgif "github.com/pragmalink/go-pragmalink/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 基础配置（WithConfig 替换）
	config *config.Config

	// 直接注入的私钥，优先于配置中的编码私钥与密钥文件
	privateKey crypto.PrivKey

	// 显式设置标记，用于默认值告警
	listenSet bool

	// 指标注册器
	registerer prometheus.Registerer

	// 注入的网络栈（测试与仿真）
	stack pkgif.Stack
}

// newOptions 创建默认选项
func newOptions() *options {
	return &options{
		config: config.NewConfig(),
	}
}

// apply 依次应用选项
func (o *options) apply(opts ...Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用完整配置作为基础
//
// 应放在其他选项之前，之后的选项在此基础上修改。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("config is nil")
		}
		c := *cfg
		c.Network.BootstrapPeers = append([]string(nil), cfg.Network.BootstrapPeers...)
		c.Messaging.Topics = append([]string(nil), cfg.Messaging.Topics...)
		o.config = &c
		o.listenSet = cfg.Network.ListenAddr != "" && cfg.Network.ListenAddr != config.DefaultListenAddr
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              身份
// ════════════════════════════════════════════════════════════════════════════

// WithPrivateKey 使用指定私钥作为节点身份
func WithPrivateKey(priv crypto.PrivKey) Option {
	return func(o *options) error {
		if priv == nil {
			return fmt.Errorf("private key is nil")
		}
		o.privateKey = priv
		return nil
	}
}

// WithIdentityFile 从文件加载身份，文件不存在时生成并保存
func WithIdentityFile(path string) Option {
	return func(o *options) error {
		if path == "" {
			return fmt.Errorf("identity file path is empty")
		}
		o.config.Identity.KeyFile = path
		o.config.Identity.PrivateKey = ""
		return nil
	}
}

// WithCertificate 设置权威签发的证书（identity.IssueCertificate 的输出）
//
// 节点用自身私钥联署后在代理版本字符串中公布。
func WithCertificate(cert []byte) Option {
	return func(o *options) error {
		o.config.Identity.Certificate = string(cert)
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              网络
// ════════════════════════════════════════════════════════════════════════════

// WithListenAddress 设置监听地址（multiaddr）
func WithListenAddress(addr string) Option {
	return func(o *options) error {
		if addr == "" {
			return fmt.Errorf("listen address is empty")
		}
		o.config.Network.ListenAddr = addr
		o.listenSet = true
		return nil
	}
}

// WithBootstrapPeers 设置启动时拨号的节点地址（multiaddr）
func WithBootstrapPeers(addrs ...string) Option {
	return func(o *options) error {
		o.config.Network.BootstrapPeers = append([]string(nil), addrs...)
		return nil
	}
}

// WithStack 注入网络栈
//
// 注入后不再创建 libp2p 网络栈，Close 时由节点关闭注入的网络栈。
func WithStack(s pkgif.Stack) Option {
	return func(o *options) error {
		if s == nil {
			return fmt.Errorf("stack is nil")
		}
		o.stack = s
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              消息
// ════════════════════════════════════════════════════════════════════════════

// WithTopics 设置启动时订阅的主题
//
// 中心主题总会订阅，不需要在这里列出。
func WithTopics(names ...string) Option {
	return func(o *options) error {
		for _, name := range names {
			if name == "" {
				return fmt.Errorf("empty topic name")
			}
		}
		o.config.Messaging.Topics = append([]string(nil), names...)
		return nil
	}
}

// WithChannelSize 设置入站广播、出站请求与授权队列的容量
func WithChannelSize(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("channel size must be positive, got %d", n)
		}
		o.config.Messaging.ChannelSize = n
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              存储与指标
// ════════════════════════════════════════════════════════════════════════════

// WithDataDir 设置数据目录，用于持久化种子簿
func WithDataDir(dir string) Option {
	return func(o *options) error {
		o.config.Storage.DataDir = dir
		return nil
	}
}

// WithMetricsRegistry 把节点指标注册到指定的 Registerer
func WithMetricsRegistry(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}
