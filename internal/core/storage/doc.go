// Package storage 提供节点的本地持久化
//
// 基于 BadgerDB。目前只有一个使用方：种子簿（SeedBook），记录已准入
// 节点的观测地址，供下次启动时与引导节点一起拨号。
//
// # 键空间
//
//	s/<peer id> - 种子地址（multiaddr 二进制编码）
//
// 测试代码应使用 t.TempDir() 创建临时目录。
package storage
