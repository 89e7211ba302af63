package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/gin-gonic/gin"

	"github.com/Rikhin/ragversate/internal/search"
)

// AnswerRequest 查询请求
type AnswerRequest struct {
	Query  string `json:"query"`
	UserID string `json:"userId"`
}

// handleGetAnswer 处理查询请求
func (s *HTTPServer) handleGetAnswer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	// 缺字段直接拒绝, 不触发任何缓存或工具调用
	if req.Query == "" || req.UserID == "" {
		s.error(c, http.StatusBadRequest, "query and userId are required")
		return
	}

	result, err := s.orchestrator.Answer(c.Request.Context(), req.Query, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrInvalidQuery):
			s.error(c, http.StatusBadRequest, err.Error())
		default:
			s.error(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	// 个性化侧更新不阻塞响应路径
	go s.recordTurn(req.UserID, req.Query, result)

	c.JSON(http.StatusOK, gin.H{
		"entities":    result.Entities,
		"source":      result.Source,
		"summary":     result.Answer,
		"cached":      result.Cached,
		"performance": result.Performance,
		"toolUsage":   result.ToolUsage,
		"reasoning":   result.Reasoning,
	})
}

// recordTurn 更新上下文引擎与个性化存储
func (s *HTTPServer) recordTurn(userID, query string, result *search.Result) {
	s.contextEng.AnalyzeContext(query, userID)
	s.contextEng.RecordEntities(userID, result.Entities)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.StoreConversation(ctx, userID, query, result.Answer, result.Entities); err != nil {
		logx.Warn("Failed to store conversation turn, user %s: %v", userID, err)
	}
}
