// Package config 提供 pragmalink 节点的统一配置
//
// 主 Config 结构体嵌入各子配置，每个子配置在独立文件中定义：
//   - Identity:  身份密钥与证书
//   - Network:   监听地址、引导节点、DHT 协议、连接管理
//   - Messaging: 主题、通道容量、消息大小
//   - Admission: 默认准入策略
//   - Storage:   数据目录（种子簿）
//   - Log:       日志级别与格式
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Network.BootstrapPeers = []string{"/ip4/10.0.0.1/tcp/1123/p2p/12D3KooW..."}
//	cfg.Messaging.Topics = []string{"prices"}
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config 节点完整配置
type Config struct {
	// Identity 身份配置
	Identity IdentityConfig `json:"identity"`

	// Network 网络配置
	Network NetworkConfig `json:"network"`

	// Messaging 消息配置
	Messaging MessagingConfig `json:"messaging"`

	// Admission 默认准入策略配置
	Admission AdmissionConfig `json:"admission"`

	// Storage 存储配置
	Storage StorageConfig `json:"storage"`

	// Log 日志配置
	Log LogConfig `json:"log"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Identity:  DefaultIdentityConfig(),
		Network:   DefaultNetworkConfig(),
		Messaging: DefaultMessagingConfig(),
		Admission: DefaultAdmissionConfig(),
		Storage:   DefaultStorageConfig(),
		Log:       DefaultLogConfig(),
	}
}

// Validate 验证配置
//
// 只检查格式；地址与密钥的解码在构建节点时完成。
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		c.Identity,
		c.Network,
		c.Messaging,
		c.Admission,
		c.Storage,
		c.Log,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FromJSON 从 JSON 解析配置，未出现的字段保留默认值
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return FromJSON(data)
}

// ToJSON 序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
