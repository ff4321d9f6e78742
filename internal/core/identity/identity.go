package identity

import (
	"fmt"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// ============================================================================
//                              Identity
// ============================================================================

// Identity 节点身份
//
// 节点启动后不可变，只由节点持有。
type Identity struct {
	priv crypto.PrivKey
	pub  crypto.PubKey
	id   peer.ID
}

// New 从私钥创建身份
func New(priv crypto.PrivKey) (*Identity, error) {
	if priv == nil {
		return nil, ErrNilPrivateKey
	}
	id, err := peer.IDFromPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("derive peer id: %w", err)
	}
	return &Identity{
		priv: priv,
		pub:  priv.GetPublic(),
		id:   id,
	}, nil
}

// ID 返回节点 ID
func (i *Identity) ID() peer.ID {
	return i.id
}

// PrivateKey 返回私钥
func (i *Identity) PrivateKey() crypto.PrivKey {
	return i.priv
}

// PublicKey 返回公钥
func (i *Identity) PublicKey() crypto.PubKey {
	return i.pub
}

// Sign 签名数据
func (i *Identity) Sign(data []byte) ([]byte, error) {
	return i.priv.Sign(data)
}

// SignCertificate 用本节点私钥联署签发证书，返回证书令牌
func (i *Identity) SignCertificate(issued []byte) (string, error) {
	return SignCertificate(i.priv, issued)
}
