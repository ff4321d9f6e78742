// Package metrics 定义节点的 prometheus 指标
//
// 指标注册在调用方提供的 Registerer 上；未提供时使用独立的
// prometheus.Registry，避免多个节点实例在同一进程内重复注册。
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

const namespace = "pragmalink"

// 标签
const (
	// LabelState 准入结果标签
	LabelState = "state"
)

// 准入结果标签值
const (
	StateAdmitted = "admitted"
	StateRejected = "rejected"
	StateFailed   = "failed"
	StateInvalid  = "invalid"
)

// Metrics 节点指标集合
type Metrics struct {
	// AdmissionOutcomes 按结果统计的准入次数
	AdmissionOutcomes *prometheus.CounterVec

	// PendingAuthorizations 等待决定的授权请求数
	PendingAuthorizations prometheus.Gauge

	// PeerSetSize 已准入节点数
	PeerSetSize prometheus.Gauge

	// InboundDelivered 投递给应用的消息数
	InboundDelivered prometheus.Counter

	// InboundDropped 因主题无法解析而丢弃的消息数
	InboundDropped prometheus.Counter

	// PublishFailures 广播失败次数
	PublishFailures prometheus.Counter

	// Traffic 按主题统计的消息流量
	Traffic *Traffic

	registry *prometheus.Registry
}

// New 创建并注册指标
//
// reg 为 nil 时创建独立的 Registry，可通过 Gatherer 读取。
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		AdmissionOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "outcomes_total",
			Help:      "Total authorization outcomes by state.",
		}, []string{LabelState}),
		PendingAuthorizations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "pending",
			Help:      "Authorization requests waiting for a verdict.",
		}),
		PeerSetSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "peers",
			Name:      "admitted",
			Help:      "Number of peers admitted into gossip and routing.",
		}),
		InboundDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inbound",
			Name:      "delivered_total",
			Help:      "Gossip messages handed to the application.",
		}),
		InboundDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inbound",
			Name:      "dropped_total",
			Help:      "Gossip messages dropped because their topic is unknown.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbound",
			Name:      "publish_failures_total",
			Help:      "Broadcast requests the gossip layer refused.",
		}),
		Traffic: NewTraffic(),
	}

	if reg == nil {
		m.registry = prometheus.NewRegistry()
		reg = m.registry
	}

	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// Nop 返回不注册到任何外部 Registerer 的指标
func Nop() *Metrics {
	m, _ := New(nil)
	return m
}

// Gatherer 返回内部 Registry（使用外部 Registerer 时为 nil）
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m.registry == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.AdmissionOutcomes,
		m.PendingAuthorizations,
		m.PeerSetSize,
		m.InboundDelivered,
		m.InboundDropped,
		m.PublishFailures,
	}
}

// ============================================================================
//                              Fx 模块
// ============================================================================

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Registerer prometheus.Registerer `optional:"true"`
}

// Provide 提供指标集合
func Provide(input ModuleInput) (*Metrics, error) {
	return New(input.Registerer)
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(Provide),
	)
}
