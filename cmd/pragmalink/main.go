// Package main 提供 pragmalink 命令行入口
package main

import (
	"fmt"
	"os"

	"github.com/pragmalink/go-pragmalink/cmd/pragmalink/commands"
)

func main() {
	if err := commands.RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
