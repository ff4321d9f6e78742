package config

import "fmt"

// AdmissionConfig 默认准入策略配置
//
// 只对内置的 policy.Decider 生效；嵌入节点的应用可以自行消费授权队列。
type AdmissionConfig struct {
	// RequireCertificate 拒绝没有由权威签发的有效证书的节点
	RequireCertificate bool `json:"require_certificate"`

	// AuthorityKey 证书权威公钥（libp2p 编码，base64 或 hex）
	// RequireCertificate 开启时必须配置
	AuthorityKey string `json:"authority_key,omitempty"`

	// RatePerSecond 每秒允许的准入数（0 不限速）
	RatePerSecond float64 `json:"rate_per_second"`

	// Burst 令牌桶容量
	Burst int `json:"burst"`
}

// DefaultAdmissionConfig 返回默认准入配置
func DefaultAdmissionConfig() AdmissionConfig {
	return AdmissionConfig{
		RatePerSecond: 10,
		Burst:         20,
	}
}

// Validate 验证准入配置
func (c AdmissionConfig) Validate() error {
	if c.RatePerSecond < 0 {
		return fmt.Errorf("%w: rate_per_second must not be negative", ErrInvalidConfig)
	}
	if c.RequireCertificate && c.AuthorityKey == "" {
		return fmt.Errorf("%w: require_certificate needs authority_key", ErrInvalidConfig)
	}
	if c.RatePerSecond > 0 && c.Burst <= 0 {
		return fmt.Errorf("%w: burst must be positive when rate limiting", ErrInvalidConfig)
	}
	return nil
}
