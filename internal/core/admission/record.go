package admission

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/libp2p/go-libp2p/core/crypto"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/pragmalink/go-pragmalink/pkg/types"
)

// certificateSegment 代理版本字符串按 "/" 切分后证书所在的下标
//
// "/pragma-node/0.1.0/<cert>" 切分为 ["", "pragma-node", "0.1.0", "<cert>"]。
const certificateSegment = 3

// ParseCertificate 从代理版本字符串提取证书令牌
//
// 第四段存在且非空时返回该段；否则视为无证书。
func ParseCertificate(agent string) (string, bool) {
	parts := strings.Split(agent, "/")
	if len(parts) <= certificateSegment {
		return "", false
	}
	cert := parts[certificateSegment]
	if cert == "" {
		return "", false
	}
	return cert, true
}

// BuildRecord 从身份事件构造待准入记录
//
// 公钥必须能解码为 Ed25519 并与事件中的节点 ID 一致。
func BuildRecord(ev types.IdentifyEvent) (types.PeerRecord, error) {
	pub, err := crypto.UnmarshalPublicKey(ev.PublicKey)
	if err != nil {
		return types.PeerRecord{}, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if pub.Type() != crypto.Ed25519 {
		return types.PeerRecord{}, fmt.Errorf("%w: %s", ErrUnexpectedKeyType, pub.Type())
	}
	if ev.Peer != "" && !ev.Peer.MatchesPublicKey(pub) {
		return types.PeerRecord{}, fmt.Errorf("%w: %s", ErrPeerMismatch, ev.Peer)
	}
	raw, err := pub.Raw()
	if err != nil {
		return types.PeerRecord{}, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	cert, hasCert := ParseCertificate(ev.AgentVersion)
	return types.PeerRecord{
		RequestID:      uuid.NewString(),
		ID:             ev.Peer,
		PublicKey:      raw,
		ListenAddrs:    append([]ma.Multiaddr(nil), ev.ListenAddrs...),
		ObservedAddr:   ev.ObservedAddr,
		Certificate:    cert,
		HasCertificate: hasCert,
	}, nil
}
