package types

import (
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// PeerRecord 待准入的远端节点
//
// 由每个身份交换事件临时构造，只存活到授权决定为止。
type PeerRecord struct {
	// RequestID 本次授权请求的唯一标识
	RequestID string

	// ID 远端节点 ID
	ID peer.ID

	// PublicKey 原始 Ed25519 公钥（32 字节）
	PublicKey []byte

	// ListenAddrs 远端声明的监听地址
	ListenAddrs []ma.Multiaddr

	// ObservedAddr 本端观测到的远端地址
	ObservedAddr ma.Multiaddr

	// Certificate 从代理版本字符串提取的证书令牌
	Certificate    string
	HasCertificate bool
}

// ============================================================================
//                              AuthRequest
// ============================================================================

// AuthRequest 发给外部决策者的授权请求
//
// 每个请求带一个单次应答槽：Accept、Reject、Respond 与 Abandon 中
// 只有第一次调用生效。Abandon 关闭应答槽而不写入结果，编排层会将其
// 视为授权协作方失效（致命错误），而不是拒绝。
type AuthRequest struct {
	Record PeerRecord

	verdict chan bool
	once    sync.Once
}

// NewAuthRequest 创建授权请求
func NewAuthRequest(rec PeerRecord) *AuthRequest {
	return &AuthRequest{
		Record:  rec,
		verdict: make(chan bool, 1),
	}
}

// Respond 写入决定，返回本次调用是否生效
func (r *AuthRequest) Respond(accept bool) bool {
	done := false
	r.once.Do(func() {
		r.verdict <- accept
		close(r.verdict)
		done = true
	})
	return done
}

// Accept 接受节点
func (r *AuthRequest) Accept() bool {
	return r.Respond(true)
}

// Reject 拒绝节点
func (r *AuthRequest) Reject() bool {
	return r.Respond(false)
}

// Abandon 放弃应答，关闭应答槽而不写入结果
func (r *AuthRequest) Abandon() bool {
	done := false
	r.once.Do(func() {
		close(r.verdict)
		done = true
	})
	return done
}

// Verdict 返回应答槽
//
// 读到值即为决定；通道关闭且无值表示请求失败。
func (r *AuthRequest) Verdict() <-chan bool {
	return r.verdict
}
