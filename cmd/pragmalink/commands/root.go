// Package commands 实现 pragmalink 命令行
//
// 配置优先级（从高到低）：
//  1. 命令行参数
//  2. 环境变量（PRAGMALINK_* 前缀，"-" 替换为 "_"）
//  3. JSON 配置文件（--config）
//  4. 默认值
package commands

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix 环境变量前缀
const envPrefix = "PRAGMALINK"

// RootCmd 根命令
var RootCmd = &cobra.Command{
	Use:           "pragmalink",
	Short:         "P2P node with application-gated peer admission",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.AddCommand(
		NewRunCmd(),
		NewKeygenCmd(),
		NewIssueCmd(),
		NewVersionCmd(),
	)
}

// bindFlagsLoadViper 把命令参数绑定到 viper，并启用环境变量
func bindFlagsLoadViper(cmd *cobra.Command, v *viper.Viper) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return nil
}
