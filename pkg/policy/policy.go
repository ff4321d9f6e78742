// Package policy 提供默认的连接准入策略
//
// 节点把每个完成身份交换的远端节点放入授权队列；Decider 消费该队列，
// 按证书与速率限制给出决定。嵌入节点的应用可以不使用本包，
// 自行读取 Node.Authorizations()。
package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/libp2p/go-libp2p/core/crypto"
	"golang.org/x/time/rate"

	"github.com/pragmalink/go-pragmalink/internal/core/identity"
	"github.com/pragmalink/go-pragmalink/pkg/lib/log"
	"github.com/pragmalink/go-pragmalink/pkg/types"
)

var logger = log.Logger("policy")

// 拒绝原因
var (
	// ErrNoCertificate 节点未出示证书令牌
	ErrNoCertificate = errors.New("policy: certificate required")

	// ErrBadCertificate 证书令牌校验失败
	ErrBadCertificate = errors.New("policy: certificate invalid")

	// ErrNoAuthority 要求证书但未配置权威公钥
	ErrNoAuthority = errors.New("policy: no certificate authority configured")

	// ErrRateLimited 准入速率超限
	ErrRateLimited = errors.New("policy: admission rate exceeded")
)

// Config 策略配置
type Config struct {
	// RequireCertificate 拒绝没有由 Authority 签发的有效证书的节点
	RequireCertificate bool

	// Authority 证书权威公钥
	// RequireCertificate 开启而 Authority 为 nil 时拒绝所有节点
	Authority crypto.PubKey

	// RatePerSecond 每秒允许的准入数（0 不限速）
	RatePerSecond float64

	// Burst 令牌桶容量
	Burst int
}

// Decider 默认准入决策者
type Decider struct {
	cfg     Config
	limiter *rate.Limiter
}

// New 创建决策者
func New(cfg Config) *Decider {
	d := &Decider{cfg: cfg}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return d
}

// Check 检查单个节点，返回 nil 表示接受
//
// 出示了证书令牌的节点总是要求令牌有效，即使未开启 RequireCertificate；
// 配置了 Authority 时令牌还必须由其签发给该节点。
// "uncertified" 令牌视为未出示。
func (d *Decider) Check(rec types.PeerRecord) error {
	certified := rec.HasCertificate && rec.Certificate != identity.Uncertified
	if d.cfg.RequireCertificate {
		if d.cfg.Authority == nil {
			return ErrNoAuthority
		}
		if !certified {
			return ErrNoCertificate
		}
	}
	if certified {
		if _, err := identity.VerifyCertificateRaw(rec.PublicKey, rec.Certificate, d.cfg.Authority); err != nil {
			return fmt.Errorf("%w: %v", ErrBadCertificate, err)
		}
	}

	if d.limiter != nil && !d.limiter.Allow() {
		return ErrRateLimited
	}
	return nil
}

// Decide 给出单个请求的决定，返回是否接受
func (d *Decider) Decide(req *types.AuthRequest) bool {
	err := d.Check(req.Record)
	if err != nil {
		logger.Info("拒绝节点", "peer", req.Record.ID, "request", req.Record.RequestID, "reason", err)
		req.Reject()
		return false
	}
	logger.Info("接受节点", "peer", req.Record.ID, "request", req.Record.RequestID)
	req.Accept()
	return true
}

// Run 持续消费授权队列，直到 ctx 取消或队列关闭
func (d *Decider) Run(ctx context.Context, requests <-chan *types.AuthRequest) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-requests:
			if !ok {
				return nil
			}
			d.Decide(req)
		}
	}
}
