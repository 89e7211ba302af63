package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/spf13/cobra"

	"github.com/Rikhin/ragversate/internal/server"
)

// serveCmd 启动 HTTP 服务
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	Long:  `启动问答引擎的 HTTP API 服务。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		// 启动前预热所有缓存模式, 失败不阻塞启动
		report := app.Registry.WarmAll(ctx)
		if !report.AllSuccess {
			logx.Warn("Cache warm-up finished with failures: %+v", report.Results)
		}

		httpServer := server.NewHTTPServer(app.Config, app.Registry, app.Orchestrator, app.ContextEng, app.Store)

		// 异步启动服务器
		errCh := make(chan error, 1)
		go func() {
			if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		// 等待退出信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-quit:
			logx.Info("Received signal %s, shutting down...", sig)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logx.Warn("Failed to stop HTTP server gracefully: %v", err)
		}

		logx.Info("✅ Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
