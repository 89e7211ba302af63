package memory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Rikhin/ragversate/internal/model"
)

// 上下文列表容量上限
const (
	topicCapacity  = 10
	entityCapacity = 20
	nextCapacity   = 5
)

// IntentScorer 查询意图打分函数
type IntentScorer func(query string) string

// SentimentScorer 情感打分函数
type SentimentScorer func(query string) string

// ComplexityScorer 复杂度打分函数
type ComplexityScorer func(query string) string

// Engine 上下文引擎
// 维护每个用户的滚动对话状态, 更新按追加后截断的方式原子应用
type Engine struct {
	mu    sync.Mutex
	users map[string]*UserContext

	// 打分器均可替换, 默认为关键词启发式
	Intent     IntentScorer
	Sentiment  SentimentScorer
	Complexity ComplexityScorer
}

// NewEngine 创建上下文引擎
func NewEngine() *Engine {
	return &Engine{
		users:      make(map[string]*UserContext),
		Intent:     defaultIntentScorer,
		Sentiment:  defaultSentimentScorer,
		Complexity: defaultComplexityScorer,
	}
}

// AnalyzeContext 将新查询合并进用户上下文并返回更新后的快照
// 首次调用时为该用户创建状态
func (e *Engine) AnalyzeContext(query, userID string) *UserContext {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.users[userID]
	if !ok {
		state = &UserContext{UserID: userID}
		e.users[userID] = state
	}

	// 话题: 最近优先, 去重后截断
	for _, topic := range extractTopics(query) {
		state.CurrentTopics = prependBounded(state.CurrentTopics, topic, topicCapacity)
	}

	state.QueryIntent = e.Intent(query)
	state.Sentiment = e.Sentiment(query)
	state.Complexity = e.Complexity(query)
	state.LikelyNextQueries = likelyNextQueries(state.CurrentTopics)
	state.SuggestedExpansions = suggestedExpansions(query, state.CurrentTopics)

	return snapshot(state)
}

// RecordEntities 将一次编排产出的实体合并进用户上下文
func (e *Engine) RecordEntities(userID string, entities []model.Entity) {
	if len(entities) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.users[userID]
	if !ok {
		state = &UserContext{UserID: userID}
		e.users[userID] = state
	}

	for _, entity := range entities {
		ref := EntityRef{ID: entity.ID, Name: entity.Name, Category: entity.Category}
		state.RecentEntities = prependBoundedRef(state.RecentEntities, ref, entityCapacity)
	}
}

// GenerateReactiveResponse 基于当前上下文生成反应式回复
// 只读取状态, 无副作用
func (e *Engine) GenerateReactiveResponse(query, userID string) string {
	e.mu.Lock()
	state, ok := e.users[userID]
	var topics []string
	var intent string
	if ok {
		topics = append(topics, state.CurrentTopics...)
		intent = state.QueryIntent
	}
	e.mu.Unlock()

	if !ok || len(topics) == 0 {
		return fmt.Sprintf("Let's look into %q - I don't have prior context for you yet.", query)
	}

	return fmt.Sprintf(
		"Given your recent focus on %s, %q looks like a %s question - I can go deeper on any of these threads.",
		strings.Join(topics[:min(3, len(topics))], ", "), query, intent,
	)
}

// GetContextSummary 获取用户上下文快照(只读)
// 用户无历史时返回 (nil, false)
func (e *Engine) GetContextSummary(userID string) (*UserContext, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.users[userID]
	if !ok {
		return nil, false
	}
	return snapshot(state), true
}

// snapshot 拷贝状态, 避免调用方看到后续并发修改
func snapshot(state *UserContext) *UserContext {
	copied := *state
	copied.CurrentTopics = append([]string{}, state.CurrentTopics...)
	copied.RecentEntities = append([]EntityRef{}, state.RecentEntities...)
	copied.LikelyNextQueries = append([]string{}, state.LikelyNextQueries...)
	copied.SuggestedExpansions = append([]string{}, state.SuggestedExpansions...)
	return &copied
}

// prependBounded 最近优先插入并截断到容量
func prependBounded(list []string, item string, capacity int) []string {
	// 已存在时先移除旧位置
	for i, existing := range list {
		if existing == item {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	list = append([]string{item}, list...)
	if len(list) > capacity {
		list = list[:capacity]
	}
	return list
}

// prependBoundedRef EntityRef 版本的有界插入
func prependBoundedRef(list []EntityRef, item EntityRef, capacity int) []EntityRef {
	for i, existing := range list {
		if existing.Name == item.Name {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	list = append([]EntityRef{item}, list...)
	if len(list) > capacity {
		list = list[:capacity]
	}
	return list
}
