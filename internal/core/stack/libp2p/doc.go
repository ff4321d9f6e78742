// Package libp2p 基于 go-libp2p 实现 interfaces.Stack
//
// 组成：
//   - host：Ed25519 身份，TCP 与 QUIC 传输，noise 与 TLS 安全通道
//   - 身份交换：host 内置 identify，完成事件经 eventbus 转为 IdentifyEvent
//   - 路由：go-libp2p-kad-dht（服务端模式，协议 /pragma/kad/0.1.0）
//   - 发布订阅：go-libp2p-pubsub gossipsub（StrictSign，主题标识即主题名）
//
// 显式对等节点在连接管理器中受保护并打标签，避免被裁剪。
package libp2p
