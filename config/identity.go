package config

import "fmt"

// IdentityConfig 身份配置
//
// 私钥来源优先级：PrivateKey > KeyFile > 临时生成。
type IdentityConfig struct {
	// PrivateKey libp2p 编码私钥（base64 或 hex）
	PrivateKey string `json:"private_key,omitempty"`

	// KeyFile 密钥文件路径，不存在时自动生成
	KeyFile string `json:"key_file,omitempty"`

	// Certificate 权威签发的证书（hex(材料).hex(权威签名)）
	// 非空时节点用自身私钥联署，并在代理版本字符串中公布
	Certificate string `json:"certificate,omitempty"`
}

// DefaultIdentityConfig 返回默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{}
}

// Validate 验证身份配置
func (c IdentityConfig) Validate() error {
	if c.PrivateKey != "" && c.KeyFile != "" {
		return fmt.Errorf("%w: private_key and key_file are mutually exclusive", ErrInvalidConfig)
	}
	return nil
}
