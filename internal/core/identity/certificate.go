package identity

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// 代理版本约定
const (
	// AgentName 代理名称
	AgentName = "pragma-node"

	// AgentProtocolVersion 代理版本号
	AgentProtocolVersion = "0.1.0"

	// Uncertified 未配置证书时代理版本字符串的第四段
	Uncertified = "uncertified"

	// certSeparator 证书各段之间的分隔符
	certSeparator = "."
)

// AgentVersion 构造身份交换协议中的代理版本字符串
//
// 格式为 /pragma-node/0.1.0/<令牌>；按 "/" 切分后令牌位于第四段。
// token 为空时使用 Uncertified。
func AgentVersion(token string) string {
	if token == "" {
		token = Uncertified
	}
	return "/" + AgentName + "/" + AgentProtocolVersion + "/" + token
}

// ════════════════════════════════════════════════════════════════════════════
//                              证书
// ════════════════════════════════════════════════════════════════════════════
//
// 签发证书：hex(材料).hex(权威签名)
//   权威签名覆盖 材料 || 持有者 peer ID
// 证书令牌：hex(材料).hex(权威签名).hex(节点签名)
//   节点签名覆盖 材料 || 权威签名
//
// 令牌不含 "/"，可安全嵌入代理版本字符串。

// IssueCertificate 权威机构为 subject 签发证书
func IssueCertificate(authority crypto.PrivKey, material []byte, subject peer.ID) (string, error) {
	if authority == nil {
		return "", ErrNilPrivateKey
	}
	if len(material) == 0 {
		return "", fmt.Errorf("%w: empty certificate material", ErrInvalidCertificate)
	}
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidCertificate)
	}
	sig, err := authority.Sign(authorityPayload(material, subject))
	if err != nil {
		return "", fmt.Errorf("issue certificate: %w", err)
	}
	return hex.EncodeToString(material) + certSeparator + hex.EncodeToString(sig), nil
}

// ParseIssuedCertificate 解析签发证书，返回材料与权威签名
func ParseIssuedCertificate(issued string) (material, authSig []byte, err error) {
	parts, err := decodeSegments(issued, 2)
	if err != nil {
		return nil, nil, err
	}
	return parts[0], parts[1], nil
}

// SignCertificate 节点联署签发证书，返回证书令牌
//
// 节点无法在本地确认证书确实签发给自己；持有者绑定由校验方用
// 权威公钥检查。
func SignCertificate(priv crypto.PrivKey, issued []byte) (string, error) {
	if priv == nil {
		return "", ErrNilPrivateKey
	}
	material, authSig, err := ParseIssuedCertificate(string(issued))
	if err != nil {
		return "", err
	}
	sig, err := priv.Sign(holderPayload(material, authSig))
	if err != nil {
		return "", fmt.Errorf("sign certificate: %w", err)
	}
	return strings.TrimSpace(string(issued)) + certSeparator + hex.EncodeToString(sig), nil
}

// VerifyCertificate 校验证书令牌，返回其中的证书材料
//
// 节点签名总是用 pub 校验。authority 非 nil 时还要求权威签名覆盖
// 材料与 pub 对应的 peer ID；authority 为 nil 时只校验联署，令牌
// 不能证明任何授权。
func VerifyCertificate(pub crypto.PubKey, token string, authority crypto.PubKey) ([]byte, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: nil public key", ErrInvalidCertificate)
	}
	parts, err := decodeSegments(token, 3)
	if err != nil {
		return nil, err
	}
	material, authSig, holderSig := parts[0], parts[1], parts[2]

	if err := verify(pub, holderPayload(material, authSig), holderSig, ErrCertificateSignature); err != nil {
		return nil, err
	}
	if authority == nil {
		return material, nil
	}

	subject, err := peer.IDFromPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	if err := verify(authority, authorityPayload(material, subject), authSig, ErrCertificateAuthority); err != nil {
		return nil, err
	}
	return material, nil
}

// VerifyCertificateRaw 使用原始 Ed25519 公钥字节校验证书令牌
func VerifyCertificateRaw(rawPub []byte, token string, authority crypto.PubKey) ([]byte, error) {
	pub, err := crypto.UnmarshalEd25519PublicKey(rawPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKeyType, err)
	}
	return VerifyCertificate(pub, token, authority)
}

func verify(pub crypto.PubKey, data, sig []byte, mismatch error) error {
	valid, err := pub.Verify(data, sig)
	if err != nil {
		return fmt.Errorf("%w: %v", mismatch, err)
	}
	if !valid {
		return mismatch
	}
	return nil
}

// decodeSegments 按分隔符切分并逐段 hex 解码，段数必须为 n 且非空
func decodeSegments(s string, n int) ([][]byte, error) {
	segs := strings.Split(strings.TrimSpace(s), certSeparator)
	if len(segs) != n {
		return nil, fmt.Errorf("%w: want %d segments, got %d", ErrInvalidCertificate, n, len(segs))
	}
	out := make([][]byte, n)
	for i, seg := range segs {
		if seg == "" {
			return nil, fmt.Errorf("%w: empty segment %d", ErrInvalidCertificate, i)
		}
		b, err := hex.DecodeString(seg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
		}
		out[i] = b
	}
	return out, nil
}

func authorityPayload(material []byte, subject peer.ID) []byte {
	return append(append([]byte(nil), material...), []byte(subject)...)
}

func holderPayload(material, authSig []byte) []byte {
	return append(append([]byte(nil), material...), authSig...)
}

// SameKey 比较两个公钥是否相同
func SameKey(a, b crypto.PubKey) bool {
	if a == nil || b == nil {
		return false
	}
	ra, errA := a.Raw()
	rb, errB := b.Raw()
	return errA == nil && errB == nil && bytes.Equal(ra, rb)
}
