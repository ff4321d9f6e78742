package pragmalink

import (
	"errors"

	"github.com/pragmalink/go-pragmalink/config"
	"github.com/pragmalink/go-pragmalink/internal/core/admission"
	"github.com/pragmalink/go-pragmalink/internal/core/broadcast"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 节点生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrAlreadyRunning 控制循环已在运行
	ErrAlreadyRunning = errors.New("node already running")

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("node closed")

	// ErrListen 无法在配置的地址上监听
	ErrListen = errors.New("listen failed")

	// ────────────────────────────────────────────────────────────────────────
	// 配置错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrInvalidConfig 配置无效（地址或密钥材料格式错误等）
	ErrInvalidConfig = config.ErrInvalidConfig

	// ────────────────────────────────────────────────────────────────────────
	// 致命错误（Run 返回）
	// ────────────────────────────────────────────────────────────────────────

	// ErrAuthorizationAbandoned 授权请求被放弃而没有给出决定
	ErrAuthorizationAbandoned = admission.ErrAbandoned

	// ErrNoReceivers 所有消息接收者都已关闭
	ErrNoReceivers = broadcast.ErrNoReceivers

	// ErrStackClosed 网络栈事件流意外结束
	ErrStackClosed = errors.New("network stack event stream closed")
)
