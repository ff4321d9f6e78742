package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pragmalink/go-pragmalink"
)

// NewVersionCmd 创建 version 命令
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), pragmalink.VersionInfo())
		},
	}
}
