// Package types 定义 pragmalink 的公共数据结构
//
// 这是系统的最底层包，不依赖任何其他 pragmalink 内部包。
// 所有类型用于在网络栈、编排循环与应用之间传递数据。
//
// # 文件组织
//
//   - ids.go       - TopicID 等标识类型
//   - events.go    - 网络栈事件（封闭变体：监听地址、身份交换、消息）
//   - messages.go  - InboundMessage、OutboundRequest
//   - admission.go - PeerRecord、AuthRequest（单次应答槽）
//   - errors.go    - 公共错误定义
package types
