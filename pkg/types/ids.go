package types

// TopicID 主题在线路上的标识
//
// 由 gossip 子协议根据主题名确定性派生。编排层不自行派生，
// 只通过 Gossip.TopicID 计算，再经 TopicRegistry 反查主题名。
type TopicID string

// String 返回标识的字符串形式
func (t TopicID) String() string {
	return string(t)
}

// IsEmpty 检查标识是否为空
func (t TopicID) IsEmpty() bool {
	return t == ""
}
