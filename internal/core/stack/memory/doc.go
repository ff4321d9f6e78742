// Package memory 提供进程内的网络栈实现
//
// 多个 Stack 通过同一个 Network 互联：Dial 按监听地址查找目标，
// 建立连接后双方各自产出一条 IdentifyEvent；Publish 把消息泛洪给
// 已连接且订阅了该主题的节点。主题标识按 SHA-256 派生，与名称不同，
// 用于验证编排层没有假设"标识即名称"。
//
// 除 pkg/interfaces.Stack 之外，Stack 还提供测试钩子：
//   - Inject:           注入任意事件（畸形身份事件、未知主题消息）
//   - ExplicitPeers:    显式对等列表快照
//   - RoutingTable:     路由表快照
//   - SetRoutingError:  让 AddAddress 失败
package memory
