package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/gin-gonic/gin"

	"github.com/Rikhin/ragversate/internal/cache"
	"github.com/Rikhin/ragversate/internal/config"
	"github.com/Rikhin/ragversate/internal/memory"
	"github.com/Rikhin/ragversate/internal/search"
	"github.com/Rikhin/ragversate/web"
)

// HTTPServer 基于 Gin 的 HTTP 服务器
type HTTPServer struct {
	config       *config.Config
	engine       *gin.Engine
	server       *http.Server
	registry     *cache.Registry
	orchestrator *search.Orchestrator
	contextEng   *memory.Engine
	store        *memory.Store
}

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(
	cfg *config.Config,
	registry *cache.Registry,
	orchestrator *search.Orchestrator,
	contextEng *memory.Engine,
	store *memory.Store,
) *HTTPServer {
	// 设置 Gin 模式
	if cfg.Server.HTTP.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &HTTPServer{
		config:       cfg,
		engine:       gin.New(),
		registry:     registry,
		orchestrator: orchestrator,
		contextEng:   contextEng,
		store:        store,
	}

	// 注册中间件
	s.registerMiddlewares()

	// 注册路由
	s.registerRoutes()

	return s
}

// Engine 返回底层 Gin 引擎(测试用)
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// registerMiddlewares 注册中间件
func (s *HTTPServer) registerMiddlewares() {
	// 恢复中间件 - 从 panic 恢复
	s.engine.Use(gin.Recovery())

	// 自定义日志中间件
	s.engine.Use(s.loggingMiddleware())

	// CORS 中间件
	s.engine.Use(s.corsMiddleware())
}

// loggingMiddleware 自定义日志中间件
func (s *HTTPServer) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		logx.Info("HTTP request, method %s, path %s, status %d, duration %s",
			method, path, status, duration)
	}
}

// corsMiddleware CORS 中间件
func (s *HTTPServer) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// registerRoutes 注册路由
func (s *HTTPServer) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.POST("/get-answer", s.handleGetAnswer)
		api.POST("/context", s.handleContext)
		api.POST("/warm-caches", s.handleWarmCaches)
		api.GET("/suggestions", s.handleSuggestions)
		api.POST("/query-suggestions", s.handleQuerySuggestions)
	}

	// 内嵌状态页
	if fs, err := web.GetFileSystem(); err == nil {
		s.engine.StaticFS("/ui", fs)
	} else {
		logx.Warn("Failed to load embedded status page: %v", err)
	}
}

// Start 启动 HTTP 服务器
func (s *HTTPServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	logx.Info("🛜 Starting HTTP Server (Gin), Addr %s", addr)
	return s.server.ListenAndServe()
}

// Stop 停止 HTTP 服务器
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Response 统一错误响应结构
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// error 返回错误响应
func (s *HTTPServer) error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}
