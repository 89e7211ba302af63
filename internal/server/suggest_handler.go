package server

import (
	"net/http"
	"strconv"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/Rikhin/ragversate/internal/memory"
)

// handleWarmCaches 并发预热所有缓存模式
// 单个模式失败只体现在结果里, 该接口本身永不硬失败
func (s *HTTPServer) handleWarmCaches(c *gin.Context) {
	report := s.registry.WarmAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"success": report.AllSuccess,
		"results": report.Results,
	})
}

// handleSuggestions 实体前缀联想
// 查询长度不足 2 时直接返回空列表, 不触碰任何后端
func (s *HTTPServer) handleSuggestions(c *gin.Context) {
	query := c.Query("q")
	if len(query) < 2 {
		c.JSON(http.StatusOK, gin.H{"suggestions": []string{}})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	client, err := s.registry.ConnectAny(c.Request.Context())
	if err != nil {
		s.error(c, http.StatusInternalServerError, err.Error())
		return
	}

	entities, err := client.SearchEntities(c.Request.Context(), query, limit)
	if err != nil {
		s.error(c, http.StatusInternalServerError, err.Error())
		return
	}

	suggestions := make([]string, 0, len(entities))
	for _, entity := range entities {
		suggestions = append(suggestions, entity.Name)
	}

	stats, err := client.Stats(c.Request.Context())
	if err != nil {
		logx.Warn("Failed to load cache stats: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"suggestions": suggestions,
		"query":       query,
		"total":       len(suggestions),
		"stats":       stats,
	})
}

// QuerySuggestionsRequest 个性化建议请求
type QuerySuggestionsRequest struct {
	Query  string `json:"query"`
	UserID string `json:"userId"`
	Limit  int    `json:"limit"`
}

// handleQuerySuggestions 个性化建议与追问
// 建议/追问/用户上下文三路并发获取
func (s *HTTPServer) handleQuerySuggestions(c *gin.Context) {
	var req QuerySuggestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.error(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	if req.Query == "" || req.UserID == "" {
		s.error(c, http.StatusBadRequest, "query and userId are required")
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}

	var (
		suggestions []string
		followUps   []string
		storeCtx    *memory.UserContext
	)

	g, gctx := errgroup.WithContext(c.Request.Context())

	g.Go(func() error {
		var err error
		suggestions, err = s.store.GetPersonalizedSuggestions(gctx, req.UserID, req.Query)
		return err
	})

	g.Go(func() error {
		var err error
		followUps, err = s.store.GenerateFollowUpQuestions(gctx, req.UserID, req.Query, "")
		return err
	})

	g.Go(func() error {
		var err error
		storeCtx, err = s.store.GetUserContext(gctx, req.UserID)
		return err
	})

	if err := g.Wait(); err != nil {
		s.error(c, http.StatusInternalServerError, err.Error())
		return
	}

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	if len(followUps) > limit {
		followUps = followUps[:limit]
	}

	// 进程内上下文与存储侧视图在这里合并
	userCtx := s.mergeContexts(req.UserID, storeCtx)

	c.JSON(http.StatusOK, gin.H{
		"personalizedSuggestions": suggestions,
		"followUpQuestions":       followUps,
		"userContext":             userCtx,
		"query":                   req.Query,
		"userId":                  req.UserID,
		"timestamp":               time.Now().Format(time.RFC3339),
	})
}

// mergeContexts 合并进程内上下文与存储侧上下文, 进程内状态优先
func (s *HTTPServer) mergeContexts(userID string, storeCtx *memory.UserContext) *memory.UserContext {
	engineCtx, ok := s.contextEng.GetContextSummary(userID)
	if !ok {
		return storeCtx
	}
	if storeCtx == nil {
		return engineCtx
	}

	merged := *engineCtx
	seen := make(map[string]bool, len(merged.CurrentTopics))
	for _, topic := range merged.CurrentTopics {
		seen[topic] = true
	}
	for _, topic := range storeCtx.CurrentTopics {
		if !seen[topic] {
			merged.CurrentTopics = append(merged.CurrentTopics, topic)
		}
	}

	return &merged
}
