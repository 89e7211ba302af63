package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"gorm.io/gorm"

	"github.com/Rikhin/ragversate/internal/llm"
	"github.com/Rikhin/ragversate/internal/model"
)

var (
	// ErrPersistence 个性化后端写入失败
	ErrPersistence = errors.New("personalization store failure")
	// ErrNotInitialized 在 Initialize 完成前发起了读写调用
	ErrNotInitialized = errors.New("personalization store is not initialized")
)

// Store 个性化存储
// 持久对话记录落 sqlite, Redis 作为可选的热历史层, 读取顺序: Redis -> sqlite -> 回填
type Store struct {
	db           *gorm.DB
	redis        *RedisCache // 可选
	llm          *llm.Client // 可选, 用于生成追问
	historyLimit int

	initialized atomic.Bool
}

// NewStore 创建个性化存储
func NewStore(db *gorm.DB, redisCache *RedisCache, llmClient *llm.Client, historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = 20
	}

	return &Store{
		db:           db,
		redis:        redisCache,
		llm:          llmClient,
		historyLimit: historyLimit,
	}
}

// Initialize 初始化存储, 幂等且可重复调用
// 调用方必须等待其成功返回后再发起读写
func (s *Store) Initialize(ctx context.Context) error {
	if s.initialized.Load() {
		return nil
	}

	if s.db == nil {
		return fmt.Errorf("%w: database handle is nil", ErrPersistence)
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			return fmt.Errorf("%w: redis unreachable: %v", ErrPersistence, err)
		}
	}

	s.initialized.Store(true)
	logx.Info("💾 Personalization store initialized")
	return nil
}

// StoreConversation 追加一轮对话
// 调用方按 fire-and-forget 处理: 失败只记录, 不阻塞响应路径
func (s *Store) StoreConversation(ctx context.Context, userID, query, response string, entities []model.Entity) error {
	if !s.initialized.Load() {
		return ErrNotInitialized
	}

	entitiesJSON := ""
	if len(entities) > 0 {
		if data, err := json.Marshal(entities); err == nil {
			entitiesJSON = string(data)
		}
	}

	record := &model.ConversationLog{
		UserID:       userID,
		Query:        query,
		Response:     response,
		EntitiesJSON: entitiesJSON,
	}

	// 1. 保存到 sqlite
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// 2. 追加到 Redis 热历史
	if s.redis != nil {
		turn := Turn{Query: query, Response: response, CreatedAt: record.CreatedAt}
		if err := s.redis.AppendTurn(ctx, userID, turn); err != nil {
			logx.Warn("Failed to append turn to redis: %v", err)
		}
	}

	return nil
}

// GetPersonalizedSuggestions 根据历史推导个性化建议
// 无历史时返回空切片
func (s *Store) GetPersonalizedSuggestions(ctx context.Context, userID, query string) ([]string, error) {
	if !s.initialized.Load() {
		return nil, ErrNotInitialized
	}

	turns, err := s.loadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return []string{}, nil
	}

	// 从历史查询中提取与当前查询不同的话题作为建议
	suggestions := []string{}
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(query)): true}
	for i := len(turns) - 1; i >= 0; i-- {
		past := strings.TrimSpace(turns[i].Query)
		key := strings.ToLower(past)
		if past == "" || seen[key] {
			continue
		}
		seen[key] = true
		suggestions = append(suggestions, fmt.Sprintf("revisit: %s", past))
	}

	for _, topic := range extractTopics(query) {
		suggestion := fmt.Sprintf("explore %s in depth", topic)
		if !seen[strings.ToLower(suggestion)] {
			suggestions = append(suggestions, suggestion)
		}
	}

	return suggestions, nil
}

// GenerateFollowUpQuestions 生成候选追问, 截断由调用方完成
func (s *Store) GenerateFollowUpQuestions(ctx context.Context, userID, query, priorAnswer string) ([]string, error) {
	if !s.initialized.Load() {
		return nil, ErrNotInitialized
	}

	// 优先使用 LLM, 不可用时走启发式
	if s.llm.Enabled() {
		followUps, err := s.llm.GenerateFollowUps(ctx, query, priorAnswer, 5)
		if err == nil && len(followUps) > 0 {
			return followUps, nil
		}
		logx.Warn("LLM follow-up generation failed, falling back to heuristics: %v", err)
	}

	base := strings.TrimRight(strings.TrimSpace(query), "?!.")
	followUps := []string{
		fmt.Sprintf("What is the history behind %s?", base),
		fmt.Sprintf("How does %s compare to alternatives?", base),
		fmt.Sprintf("What are the latest developments around %s?", base),
	}
	return followUps, nil
}

// GetUserContext 从存储的历史推导用户上下文(供应商侧视图)
// 与上下文引擎的进程内状态由调用方合并, 这里不做合并
func (s *Store) GetUserContext(ctx context.Context, userID string) (*UserContext, error) {
	if !s.initialized.Load() {
		return nil, ErrNotInitialized
	}

	turns, err := s.loadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	userCtx := &UserContext{
		UserID:              userID,
		CurrentTopics:       []string{},
		RecentEntities:      []EntityRef{},
		LikelyNextQueries:   []string{},
		SuggestedExpansions: []string{},
	}

	// turns 从旧到新, 逐轮前插后最新一轮的话题留在最前
	for i := 0; i < len(turns); i++ {
		for _, topic := range extractTopics(turns[i].Query) {
			userCtx.CurrentTopics = prependBounded(userCtx.CurrentTopics, topic, topicCapacity)
		}
	}

	if len(turns) > 0 {
		last := turns[len(turns)-1]
		userCtx.QueryIntent = defaultIntentScorer(last.Query)
		userCtx.Sentiment = defaultSentimentScorer(last.Query)
		userCtx.Complexity = defaultComplexityScorer(last.Query)
		userCtx.LikelyNextQueries = likelyNextQueries(userCtx.CurrentTopics)
	}

	return userCtx, nil
}

// loadHistory 读取用户对话历史: Redis 优先, 回退 sqlite 并回填
func (s *Store) loadHistory(ctx context.Context, userID string) ([]Turn, error) {
	// 1. 先尝试从 Redis 读取
	if s.redis != nil {
		turns, err := s.redis.GetHistory(ctx, userID)
		if err == nil && len(turns) > 0 {
			logx.Debug("Conversation history loaded from redis, user %s", userID)
			if len(turns) > s.historyLimit {
				turns = turns[len(turns)-s.historyLimit:]
			}
			return turns, nil
		}
	}

	// 2. 从 sqlite 读取
	var logs []model.ConversationLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(s.historyLimit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}

	// 反转顺序(因为是 DESC 查询)
	turns := make([]Turn, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		turns = append(turns, Turn{
			Query:     logs[i].Query,
			Response:  logs[i].Response,
			CreatedAt: logs[i].CreatedAt,
		})
	}

	// 3. 回填 Redis
	if s.redis != nil && len(turns) > 0 {
		if err := s.redis.SaveHistory(ctx, userID, turns); err != nil {
			logx.Warn("Failed to backfill history to redis: %v", err)
		}
	}

	return turns, nil
}
