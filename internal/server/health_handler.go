package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// handleHealth 健康检查
// 任一依赖不可用时返回 503 并标明降级的服务, 而不是直接失败
func (s *HTTPServer) handleHealth(c *gin.Context) {
	services := gin.H{
		"cache":  "up",
		"search": "up",
		"llm":    "up",
	}
	healthy := true

	// 活跃缓存模式可达性
	client, err := s.registry.Connect(c.Request.Context(), s.registry.ActiveMode())
	if err != nil || !client.HealthCheck(c.Request.Context()) {
		services["cache"] = "down"
		healthy = false
	}

	// 外部依赖只检查配置是否就绪
	if s.config.Search.APIKey == "" {
		services["search"] = "down"
		healthy = false
	}
	if !s.config.LLM.Enabled || s.config.LLM.APIKey == "" {
		services["llm"] = "down"
		healthy = false
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":      status,
		"timestamp":   time.Now().Format(time.RFC3339),
		"services":    services,
		"environment": s.config.Environment,
	})
}
