package cmd

import (
	"context"
	"fmt"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// warmCmd 预热所有缓存模式
var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "预热所有缓存模式",
	Long:  `连接并预热所有已声明的缓存模式, 输出每个模式的预热结果。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		report := app.Registry.WarmAll(ctx)

		var rows [][]string
		for _, mode := range app.Registry.AvailableModes() {
			result := report.Results[mode.Name]
			status := "warmed"
			if !result.Warmed {
				status = "failed"
			}
			rows = append(rows, []string{mode.Name, mode.Description, status, result.Error})
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
			Headers("Mode", "Description", "Status", "Error").
			Rows(rows...)

		fmt.Println(t)

		if report.AllSuccess {
			logx.Info("✅ All cache modes warmed")
		} else {
			logx.Warn("Some cache modes failed to warm")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(warmCmd)
}
