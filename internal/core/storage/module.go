package storage

import (
	"context"

	"go.uber.org/fx"
)

// Params 模块依赖参数
type Params struct {
	fx.In

	Config *Config `optional:"true"`
}

// Result 模块提供的结果
type Result struct {
	fx.Out

	// Seeds 未配置数据目录时为 nil
	Seeds *SeedBook
}

// Module 返回 storage fx 模块
//
// 未配置 Config 时不打开数据库，Seeds 为 nil。
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(Provide),
		fx.Invoke(registerLifecycle),
	)
}

// Provide 打开数据库并提供种子簿
func Provide(p Params) (Result, error) {
	if p.Config == nil {
		return Result{}, nil
	}
	db, err := Open(*p.Config)
	if err != nil {
		return Result{}, err
	}
	return Result{Seeds: NewSeedBook(db)}, nil
}

// registerLifecycle 注册关闭钩子
func registerLifecycle(lc fx.Lifecycle, seeds *SeedBook) {
	if seeds == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			logger.Info("正在关闭存储")
			if err := seeds.Close(); err != nil {
				logger.Warn("存储关闭失败", "error", err)
				return err
			}
			return nil
		},
	})
}
