package admission

import (
	"github.com/pragmalink/go-pragmalink/internal/core/metrics"
	"github.com/pragmalink/go-pragmalink/pkg/types"
)

// State 准入状态
type State int

const (
	// StateReceived 收到身份事件
	StateReceived State = iota
	// StateAwaitingVerdict 等待外部决定
	StateAwaitingVerdict
	// StateAdmitted 已接受
	StateAdmitted
	// StateRejected 已拒绝
	StateRejected
	// StateFailed 无法得到决定
	StateFailed
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateAwaitingVerdict:
		return "awaiting_verdict"
	case StateAdmitted:
		return metrics.StateAdmitted
	case StateRejected:
		return metrics.StateRejected
	case StateFailed:
		return metrics.StateFailed
	default:
		return "unknown"
	}
}

// Terminal 是否为终态
func (s State) Terminal() bool {
	return s == StateAdmitted || s == StateRejected || s == StateFailed
}

// Outcome 一次授权的终态
type Outcome struct {
	Record types.PeerRecord
	State  State

	// Err 仅在 StateFailed 时非 nil
	Err error
}
