package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextAction 上下文操作类型(封闭枚举)
type ContextAction string

const (
	ActionAnalyze  ContextAction = "analyze"
	ActionReactive ContextAction = "reactive"
	ActionSummary  ContextAction = "summary"
)

// ContextRequest 上下文请求
type ContextRequest struct {
	Query  string `json:"query"`
	UserID string `json:"userId"`
	Action string `json:"action"`
}

// handleContext 处理上下文请求, action 枚举穷尽匹配, 未知值显式报错
func (s *HTTPServer) handleContext(c *gin.Context) {
	var req ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	if req.UserID == "" || req.Action == "" {
		s.error(c, http.StatusBadRequest, "userId and action are required")
		return
	}

	switch ContextAction(req.Action) {
	case ActionAnalyze:
		if req.Query == "" {
			s.error(c, http.StatusBadRequest, "query is required for analyze")
			return
		}
		userCtx := s.contextEng.AnalyzeContext(req.Query, req.UserID)
		c.JSON(http.StatusOK, gin.H{"userContext": userCtx})

	case ActionReactive:
		if req.Query == "" {
			s.error(c, http.StatusBadRequest, "query is required for reactive")
			return
		}
		response := s.contextEng.GenerateReactiveResponse(req.Query, req.UserID)
		c.JSON(http.StatusOK, gin.H{"response": response})

	case ActionSummary:
		userCtx, ok := s.contextEng.GetContextSummary(req.UserID)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"userContext": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"userContext": userCtx})

	default:
		s.error(c, http.StatusBadRequest, "unknown action: "+req.Action)
	}
}
