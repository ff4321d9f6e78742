package libp2p

import (
	"context"

	"go.uber.org/fx"

	"github.com/pragmalink/go-pragmalink/internal/core/identity"
	pkgif "github.com/pragmalink/go-pragmalink/pkg/interfaces"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Identity *identity.Identity
	Config   *Config `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Stack pkgif.Stack
}

// Provide 创建 libp2p 网络栈
//
// Config 中的 PrivateKey 总是取自节点身份。
func Provide(input ModuleInput) (ModuleOutput, error) {
	var cfg Config
	if input.Config != nil {
		cfg = *input.Config
	}
	cfg.PrivateKey = input.Identity.PrivateKey()

	s, err := New(cfg)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Stack: s}, nil
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("stack/libp2p",
		fx.Provide(Provide),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, s pkgif.Stack) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return s.Close()
		},
	})
}
