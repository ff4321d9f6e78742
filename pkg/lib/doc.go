// Package lib 包含基础设施工具库
//
// 本目录包含与节点编排无关的通用工具库：
//
//   - log: 基于 slog 的日志封装
//
// # 与 pkg/ 其他目录的关系
//
//   - interfaces/: 网络栈接口（编排器与网络栈之间的边界）
//   - types/: 公共类型定义
//   - policy/: 参考准入策略
//   - lib/: 基础设施工具库（本目录）
package lib
