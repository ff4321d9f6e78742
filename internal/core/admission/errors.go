package admission

import "errors"

var (
	// ErrMalformedKey 身份事件中的公钥无法解码
	ErrMalformedKey = errors.New("admission: malformed public key")

	// ErrUnexpectedKeyType 公钥不是 Ed25519
	ErrUnexpectedKeyType = errors.New("admission: unexpected key type")

	// ErrPeerMismatch 公钥与节点 ID 不匹配
	ErrPeerMismatch = errors.New("admission: public key does not match peer id")

	// ErrAbandoned 授权请求的应答槽在给出决定前被关闭
	//
	// 表示授权协作方已失效，对编排循环是致命错误。
	ErrAbandoned = errors.New("admission: authorization abandoned without verdict")
)
