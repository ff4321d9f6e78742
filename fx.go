package pragmalink

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/pragmalink/go-pragmalink/internal/core/identity"
	"github.com/pragmalink/go-pragmalink/internal/core/metrics"
	p2pstack "github.com/pragmalink/go-pragmalink/internal/core/stack/libp2p"
	"github.com/pragmalink/go-pragmalink/internal/core/storage"
	pkgif "github.com/pragmalink/go-pragmalink/pkg/interfaces"
	"github.com/pragmalink/go-pragmalink/pkg/lib/log"
)

var fxLogger = log.Logger("pragmalink/fx")

// nodeConfig 构建阶段解析后的节点配置
type nodeConfig struct {
	identity    identity.Config
	certificate []byte

	stackConfig p2pstack.Config
	stack       pkgif.Stack

	storage    *storage.Config
	registerer prometheus.Registerer
}

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. Identity → Metrics → Storage
//  2. Stack（注入的网络栈或 libp2p 网络栈，依赖 Identity）
//  3. Node 组件注入
func buildFxApp(cfg *nodeConfig, node *Node) *fx.App {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 基础组件
	// ════════════════════════════════════════════════════════════════════════
	identityCfg := cfg.identity
	modules := []fx.Option{
		fx.Supply(&identityCfg),

		identity.Module(), // 身份管理
		metrics.Module(),  // prometheus 指标
		storage.Module(),  // 种子簿（配置数据目录时启用）
	}

	if cfg.registerer != nil {
		reg := cfg.registerer
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return reg }))
	}
	if cfg.storage != nil {
		modules = append(modules, fx.Supply(cfg.storage))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 网络栈
	// ════════════════════════════════════════════════════════════════════════
	if cfg.stack != nil {
		injected := cfg.stack
		modules = append(modules,
			fx.Provide(func() pkgif.Stack { return injected }),
			fx.Invoke(registerInjectedStack),
		)
	} else {
		modules = append(modules,
			fx.Provide(provideStackConfig(cfg)),
			p2pstack.Module(),
		)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. Node 组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectNodeComponents(node)))

	// ════════════════════════════════════════════════════════════════════════
	// 4. Fx 配置
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.NopLogger,
	)

	return fx.New(modules...)
}

// provideStackConfig 根据节点身份生成 libp2p 网络栈配置
//
// 配置了证书时用身份私钥签名，令牌写入代理版本字符串。
func provideStackConfig(cfg *nodeConfig) func(*identity.Identity) (*p2pstack.Config, error) {
	return func(id *identity.Identity) (*p2pstack.Config, error) {
		token := ""
		if len(cfg.certificate) > 0 {
			var err error
			token, err = id.SignCertificate(cfg.certificate)
			if err != nil {
				return nil, err
			}
		}

		sc := cfg.stackConfig
		sc.AgentVersion = identity.AgentVersion(token)
		fxLogger.Debug("网络栈配置",
			"agent", log.TruncateID(sc.AgentVersion, 48),
			"kad", sc.KadProtocol)
		return &sc, nil
	}
}

// registerInjectedStack 注入的网络栈随 Fx 应用一起关闭
func registerInjectedStack(lc fx.Lifecycle, s pkgif.Stack) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return s.Close()
		},
	})
}

// ════════════════════════════════════════════════════════════════════════════
// 组件注入辅助函数
// ════════════════════════════════════════════════════════════════════════════

// nodeInjectParams Node 组件注入参数
type nodeInjectParams struct {
	fx.In

	Stack   pkgif.Stack
	Metrics *metrics.Metrics
	Seeds   *storage.SeedBook `optional:"true"`
}

// injectNodeComponents 把 Fx 构建的组件注入 Node
func injectNodeComponents(node *Node) func(nodeInjectParams) {
	return func(p nodeInjectParams) {
		node.stack = p.Stack
		node.metrics = p.Metrics
		node.seeds = p.Seeds
	}
}
