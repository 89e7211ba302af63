package cmd

import (
	"context"
	"fmt"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var entitiesMode string

// entitiesCmd 列出缓存中的实体
var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "列出缓存模式中的实体",
	Long:  `连接指定的缓存模式并列出其中缓存的全部实体。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		mode := entitiesMode
		if mode == "" {
			mode = app.Registry.ActiveMode()
		}

		client, err := app.Registry.Connect(ctx, mode)
		if err != nil {
			return err
		}

		entities, err := client.GetAllEntities(ctx)
		if err != nil {
			return err
		}

		if len(entities) == 0 {
			logx.Info("Cache mode %s holds no entities yet", mode)
			return nil
		}

		var rows [][]string
		for _, entity := range entities {
			rows = append(rows, []string{entity.Name, entity.Category, entity.SourceQuery})
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
			Headers("Name", "Category", "Source Query").
			Rows(rows...)

		fmt.Println(t)
		logx.Info("Cache mode %s holds %d entities", mode, len(entities))

		return nil
	},
}

func init() {
	entitiesCmd.Flags().StringVarP(&entitiesMode, "mode", "m", "", "缓存模式(默认使用活跃模式)")
	rootCmd.AddCommand(entitiesCmd)
}
