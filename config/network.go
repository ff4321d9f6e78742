package config

import (
	"fmt"
	"strings"
)

const (
	// DefaultListenAddr 默认监听地址
	DefaultListenAddr = "/ip4/0.0.0.0/tcp/1123"

	// DefaultKadProtocol 默认 DHT 协议
	DefaultKadProtocol = "/pragma/kad/0.1.0"
)

// NetworkConfig 网络配置
type NetworkConfig struct {
	// ListenAddr 监听地址（multiaddr）
	ListenAddr string `json:"listen_addr"`

	// BootstrapPeers 启动时拨号的节点地址（multiaddr）
	BootstrapPeers []string `json:"bootstrap_peers,omitempty"`

	// KadProtocol DHT 协议 ID
	KadProtocol string `json:"kad_protocol"`

	// ConnLow / ConnHigh 连接管理器水位
	ConnLow  int `json:"conn_low"`
	ConnHigh int `json:"conn_high"`
}

// DefaultNetworkConfig 返回默认网络配置
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		ListenAddr:  DefaultListenAddr,
		KadProtocol: DefaultKadProtocol,
		ConnLow:     64,
		ConnHigh:    256,
	}
}

// Validate 验证网络配置
func (c NetworkConfig) Validate() error {
	if c.ListenAddr != "" && !strings.HasPrefix(c.ListenAddr, "/") {
		return fmt.Errorf("%w: listen_addr %q is not a multiaddr", ErrInvalidConfig, c.ListenAddr)
	}
	if c.KadProtocol != "" && !strings.HasPrefix(c.KadProtocol, "/") {
		return fmt.Errorf("%w: kad_protocol must start with /", ErrInvalidConfig)
	}
	if c.ConnLow < 0 || c.ConnHigh < 0 || (c.ConnHigh > 0 && c.ConnLow > c.ConnHigh) {
		return fmt.Errorf("%w: conn_low must not exceed conn_high", ErrInvalidConfig)
	}
	return nil
}
