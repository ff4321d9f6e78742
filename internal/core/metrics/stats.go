package metrics

// Stats 流量统计快照
//
// TotalIn 和 TotalOut 是累计字节数，RateIn 和 RateOut 是最近 60 秒的
// 平均速率（字节/秒）。
type Stats struct {
	TotalIn  int64   // 总入站字节
	TotalOut int64   // 总出站字节
	RateIn   float64 // 入站速率（字节/秒）
	RateOut  float64 // 出站速率（字节/秒）

	MessagesIn  int64 // 入站消息数
	MessagesOut int64 // 出站消息数
}
