package identity

import (
	"fmt"

	"github.com/libp2p/go-libp2p/core/crypto"
	"go.uber.org/fx"

	"github.com/pragmalink/go-pragmalink/pkg/lib/log"
)

var logger = log.Logger("core/identity")

// Config 身份模块配置
type Config struct {
	// PrivateKey 直接注入的私钥（最高优先级）
	PrivateKey crypto.PrivKey

	// KeyFile 密钥文件路径，不存在时自动生成
	KeyFile string
}

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Config *Config `optional:"true"`
}

// Provide 创建或加载节点身份
//
// 优先级：PrivateKey > KeyFile > 生成临时密钥
func Provide(input ModuleInput) (*Identity, error) {
	var cfg Config
	if input.Config != nil {
		cfg = *input.Config
	}

	priv := cfg.PrivateKey
	switch {
	case priv != nil:
	case cfg.KeyFile != "":
		var created bool
		var err error
		priv, created, err = LoadOrCreate(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("加载身份失败: %w", err)
		}
		if created {
			logger.Info("已生成新身份密钥", "path", cfg.KeyFile)
		}
	default:
		var err error
		priv, err = Generate()
		if err != nil {
			return nil, fmt.Errorf("创建身份失败: %w", err)
		}
		logger.Warn("未配置私钥，使用临时生成的 Ed25519 身份")
	}

	return New(priv)
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("identity",
		fx.Provide(Provide),
	)
}
