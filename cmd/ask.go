package cmd

import (
	"context"
	"fmt"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var askUserID string

// askCmd 一次性查询
var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "执行一次查询",
	Long:  `执行一次查询并输出回答、实体与遥测信息。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := args[0]
		ctx := context.Background()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := app.Orchestrator.Answer(ctx, query, askUserID)
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Println(result.Answer)
		fmt.Println()

		if len(result.Entities) > 0 {
			var rows [][]string
			for _, entity := range result.Entities {
				rows = append(rows, []string{entity.Name, entity.Category, entity.Description})
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
				Headers("Name", "Category", "Description").
				Rows(rows...)

			fmt.Println(t)
			fmt.Println()
		}

		logx.Info("Query completed, cached %v, source %s, total %dms, cache %dms, search %dms",
			result.Cached, result.Source,
			result.Performance.TotalTimeMS, result.Performance.CacheTimeMS, result.Performance.SearchToolTimeMS)

		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askUserID, "user", "u", "cli_user", "用户标识")
	rootCmd.AddCommand(askCmd)
}
