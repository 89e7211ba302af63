package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configFile string

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "ragversate",
	Short: "带缓存的网络问答引擎",
	Long:  `ragversate 是一个带实体缓存与个性化上下文的网络搜索问答引擎。`,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
}
