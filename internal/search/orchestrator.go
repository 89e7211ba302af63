package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Rikhin/ragversate/internal/cache"
	"github.com/Rikhin/ragversate/internal/model"
	"github.com/Rikhin/ragversate/internal/tools"
)

var (
	// ErrInvalidQuery 查询为空或非法
	ErrInvalidQuery = errors.New("query is empty")
	// ErrOrchestration 所有缓存模式均不可达, 本次运行无法进行
	ErrOrchestration = errors.New("no cache mode reachable")
)

// ToolServer 工具服务器接口(避免直接依赖具体实现)
type ToolServer interface {
	CallTool(ctx context.Context, name string, arguments map[string]any) (*mcp.CallToolResult, error)
}

// Orchestrator 搜索编排器
// 将一次 (query, userID) 解析为结构化结果: 缓存命中直接返回,
// 未命中时依次调用搜索/抽取/摘要工具并回写缓存, 全程记录遥测
type Orchestrator struct {
	registry      *cache.Registry
	tools         ToolServer
	searchTimeout time.Duration
}

// NewOrchestrator 创建搜索编排器
func NewOrchestrator(registry *cache.Registry, toolServer ToolServer, searchTimeout time.Duration) *Orchestrator {
	if searchTimeout <= 0 {
		searchTimeout = 8 * time.Second
	}

	return &Orchestrator{
		registry:      registry,
		tools:         toolServer,
		searchTimeout: searchTimeout,
	}
}

// Answer 解析一次查询
// 工具失败与缓存写入失败均降级处理, 只有空查询和后端全部不可达会返回错误
func (o *Orchestrator) Answer(ctx context.Context, query, userID string) (*Result, error) {
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidQuery
	}

	fingerprint := Fingerprint(query)
	logx.Debug("Resolving query, user %s, fingerprint %s", userID, fingerprint)

	client, err := o.registry.ConnectAny(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrchestration, err)
	}

	perf := PerformanceRecord{}

	// 1. 缓存查找
	cacheStart := time.Now()
	record, err := client.GetByFingerprint(ctx, fingerprint)
	perf.CacheTimeMS = time.Since(cacheStart).Milliseconds()
	if err != nil {
		// 读失败按未命中处理, 走外部工具链
		logx.Warn("Cache lookup failed, treating as miss: %v", err)
	}

	// 2. 命中: 不发起任何外部调用
	if record != nil {
		perf.TotalTimeMS = time.Since(start).Milliseconds()
		logx.Info("✅ Cache hit, mode %s, fingerprint %s", client.Mode(), fingerprint)
		return &Result{
			Answer:      record.Summary,
			Entities:    record.Entities(),
			Source:      record.Source,
			Cached:      true,
			Performance: perf,
			ToolUsage:   []ToolUsageRecord{},
			Reasoning:   fmt.Sprintf("cache hit in mode %s for fingerprint %s; no external tools invoked", client.Mode(), fingerprint),
		}, nil
	}

	// 3. 未命中: 依次调用搜索 -> 抽取 -> 摘要
	usage := []ToolUsageRecord{}
	var trace []string
	trace = append(trace, fmt.Sprintf("cache miss in mode %s", client.Mode()))

	searchText, searchOK := o.runWebSearch(ctx, query, &usage, &perf, &trace)

	entities := o.runExtractEntities(ctx, query, searchText, &usage, &trace)

	// 实体落库(append-only), 失败只记录
	if len(entities) > 0 {
		if err := client.SaveEntities(ctx, entities); err != nil {
			logx.Warn("Failed to persist extracted entities, mode %s: %v", client.Mode(), err)
		}
	}

	answer, summaryOK := o.runSummarize(ctx, query, searchText, &usage, &trace)

	// 4. 降级: 摘要失败时退回片段, 什么都没有时给出显式失败说明
	source := "web_search"
	if !summaryOK {
		if searchText != "" {
			answer = snippetFallback(searchText)
			trace = append(trace, "summary unavailable, returned raw snippets")
		} else {
			answer = fmt.Sprintf("No results could be retrieved for %q: the search tool was unavailable.", query)
			source = "degraded"
			trace = append(trace, "all tools failed, returned degraded answer")
		}
	}

	// 5. 回写缓存(写失败只记录, 不影响响应)
	if searchOK && cacheable(answer) {
		newRecord := &model.CacheRecord{
			Fingerprint: fingerprint,
			Summary:     answer,
			Source:      source,
		}
		if err := newRecord.SetEntities(entities); err != nil {
			logx.Warn("Failed to serialize entities for cache: %v", err)
		}
		if err := client.Put(ctx, fingerprint, newRecord); err != nil {
			logx.Warn("Failed to write cache record, mode %s: %v", client.Mode(), err)
		} else {
			trace = append(trace, "result cached")
		}
	}

	perf.TotalTimeMS = time.Since(start).Milliseconds()

	return &Result{
		Answer:      answer,
		Entities:    entities,
		Source:      source,
		Cached:      false,
		Performance: perf,
		ToolUsage:   usage,
		Reasoning:   strings.Join(trace, "; "),
	}, nil
}

// runWebSearch 在限定超时内调用外部搜索工具
// 超时视为一次失败的工具调用, 不中断整个运行
func (o *Orchestrator) runWebSearch(ctx context.Context, query string, usage *[]ToolUsageRecord, perf *PerformanceRecord, trace *[]string) (string, bool) {
	// 调用方已取消, 不再发起调用
	if ctx.Err() != nil {
		*trace = append(*trace, "caller cancelled before search")
		return "", false
	}

	sctx, cancel := context.WithTimeout(ctx, o.searchTimeout)
	defer cancel()

	toolStart := time.Now()
	result, err := o.tools.CallTool(sctx, tools.ToolWebSearch, map[string]any{"query": query})
	duration := time.Since(toolStart).Milliseconds()
	perf.SearchToolTimeMS = duration

	ok := err == nil && result != nil && !result.IsError
	*usage = append(*usage, ToolUsageRecord{
		Tool:       tools.ToolWebSearch,
		Action:     "search",
		Success:    ok,
		DurationMS: duration,
	})

	if !ok {
		logx.Warn("Web search failed after %dms: %v", duration, err)
		*trace = append(*trace, "web_search failed")
		return "", false
	}

	var parsed struct {
		Results []tools.SearchItem `json:"results"`
	}
	if uerr := json.Unmarshal([]byte(resultText(result)), &parsed); uerr != nil || len(parsed.Results) == 0 {
		*trace = append(*trace, "web_search returned no usable results")
		return "", false
	}

	var lines []string
	for _, item := range parsed.Results {
		lines = append(lines, fmt.Sprintf("%s: %s", item.Title, item.Snippet))
	}
	*trace = append(*trace, fmt.Sprintf("web_search returned %d results", len(parsed.Results)))

	return strings.Join(lines, "\n"), true
}

// runExtractEntities 从搜索结果中抽取实体
func (o *Orchestrator) runExtractEntities(ctx context.Context, query, text string, usage *[]ToolUsageRecord, trace *[]string) []model.Entity {
	entities := []model.Entity{}
	if ctx.Err() != nil || text == "" {
		return entities
	}

	toolStart := time.Now()
	result, err := o.tools.CallTool(ctx, tools.ToolExtractEntities, map[string]any{
		"query": query,
		"text":  text,
	})
	duration := time.Since(toolStart).Milliseconds()

	ok := err == nil && result != nil && !result.IsError
	*usage = append(*usage, ToolUsageRecord{
		Tool:       tools.ToolExtractEntities,
		Action:     "extract",
		Success:    ok,
		DurationMS: duration,
	})

	if !ok {
		logx.Warn("Entity extraction failed: %v", err)
		*trace = append(*trace, "extract_entities failed")
		return entities
	}

	var parsed struct {
		Entities []tools.ExtractedEntity `json:"entities"`
	}
	if uerr := json.Unmarshal([]byte(resultText(result)), &parsed); uerr != nil {
		*trace = append(*trace, "extract_entities returned unparseable output")
		return entities
	}

	now := time.Now()
	normalized := Normalize(query)
	for _, e := range parsed.Entities {
		entities = append(entities, model.Entity{
			ID:          uuid.NewString(),
			Name:        e.Name,
			Category:    e.Category,
			Description: e.Description,
			SourceQuery: normalized,
			CreatedAt:   now,
		})
	}

	*trace = append(*trace, fmt.Sprintf("extracted %d entities", len(entities)))
	return entities
}

// runSummarize 生成摘要回答
func (o *Orchestrator) runSummarize(ctx context.Context, query, text string, usage *[]ToolUsageRecord, trace *[]string) (string, bool) {
	if ctx.Err() != nil || text == "" {
		return "", false
	}

	toolStart := time.Now()
	result, err := o.tools.CallTool(ctx, tools.ToolSummarize, map[string]any{
		"query": query,
		"text":  text,
	})
	duration := time.Since(toolStart).Milliseconds()

	ok := err == nil && result != nil && !result.IsError
	*usage = append(*usage, ToolUsageRecord{
		Tool:       tools.ToolSummarize,
		Action:     "summarize",
		Success:    ok,
		DurationMS: duration,
	})

	if !ok {
		logx.Warn("Summarize failed: %v", err)
		*trace = append(*trace, "summarize failed")
		return "", false
	}

	answer := strings.TrimSpace(resultText(result))
	if answer == "" {
		*trace = append(*trace, "summarize returned empty output")
		return "", false
	}

	*trace = append(*trace, "summary generated")
	return answer, true
}

// resultText 提取工具结果中的文本内容
func resultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// snippetFallback 摘要不可用时的降级回答
func snippetFallback(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 3 {
		lines = lines[:3]
	}
	return strings.Join(lines, " ")
}

// 不缓存的回答特征, 避免把错误响应固化进缓存
var uncacheableMarkers = []string{
	"i/o timeout",
	"connection refused",
	"context deadline exceeded",
	"failed to",
	"error:",
	"Error:",
}

// cacheable 判断回答是否值得缓存
func cacheable(answer string) bool {
	// 太短的回答可能不是有效内容
	if len(answer) < 10 {
		return false
	}
	for _, marker := range uncacheableMarkers {
		if strings.Contains(answer, marker) {
			return false
		}
	}
	return true
}
