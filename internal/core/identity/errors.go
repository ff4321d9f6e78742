package identity

import "errors"

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrNilPrivateKey 私钥为 nil
	ErrNilPrivateKey = errors.New("private key is nil")

	// ErrInvalidKeyMaterial 密钥材料无法解码
	ErrInvalidKeyMaterial = errors.New("invalid key material")

	// ErrUnsupportedKeyType 不支持的密钥类型
	ErrUnsupportedKeyType = errors.New("unsupported key type")

	// ErrInvalidCertificate 证书令牌格式错误
	ErrInvalidCertificate = errors.New("invalid certificate token")

	// ErrCertificateSignature 证书签名校验失败
	ErrCertificateSignature = errors.New("certificate signature mismatch")

	// ErrCertificateAuthority 证书不是由信任的权威签发给该节点
	ErrCertificateAuthority = errors.New("certificate not issued by trusted authority")
)
