// Package broadcast 实现进程内多消费者广播通道
//
// 与事件总线不同，广播通道只承载一种值类型，并采用"丢弃最旧"的
// 溢出策略：每个接收者有固定容量的缓冲区，消费过慢时最旧的消息被
// 挤出，发送方永不阻塞。
//
// # 快速开始
//
//	hub := broadcast.New[types.InboundMessage](1000, broadcast.WithClone(types.InboundMessage.Clone))
//	rx, _ := hub.Subscribe()
//	defer rx.Close()
//
//	go func() {
//	    for msg := range rx.C() {
//	        // 处理消息
//	    }
//	}()
//
//	if _, err := hub.Send(msg); errors.Is(err, broadcast.ErrNoReceivers) {
//	    // 所有接收者都已关闭，之后也不会再有接收者
//	}
//
// # 负载所有权
//
// 默认所有接收者共享 Send 的同一个值。值内含可变切片时，用 WithClone
// 为每个接收者复制一份，某个接收者修改负载不会影响其他接收者。
//
// # 封存语义
//
// 最后一个接收者关闭后，广播通道被封存：Subscribe 返回 ErrSealed，
// Send 返回 ErrNoReceivers。在此之前，尚无接收者时发送的消息被直接丢弃。
//
// # 并发安全
//
//   - 订阅/取消订阅/发送：Mutex 保护
//   - 接收者滞后计数：atomic.Uint64
//   - 通道关闭：closeOnce 防止重复
package broadcast
