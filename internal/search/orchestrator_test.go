package search

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rikhin/ragversate/internal/cache"
	"github.com/Rikhin/ragversate/internal/config"
	"github.com/Rikhin/ragversate/internal/tools"
)

// fakeToolServer 可编程的工具服务器桩
type fakeToolServer struct {
	mu          sync.Mutex
	calls       []string
	searchDelay time.Duration
	searchFails bool
	results     []tools.SearchItem
	summary     string
}

func (f *fakeToolServer) CallTool(ctx context.Context, name string, arguments map[string]any) (*mcp.CallToolResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()

	switch name {
	case tools.ToolWebSearch:
		if f.searchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.searchDelay):
			}
		}
		if f.searchFails {
			return mcp.NewToolResultError("search backend unavailable"), nil
		}
		data, _ := json.Marshal(map[string]any{"results": f.results})
		return mcp.NewToolResultText(string(data)), nil

	case tools.ToolExtractEntities:
		entities := []tools.ExtractedEntity{
			{Name: "Elon Musk", Category: "person", Description: "CEO of SpaceX and Tesla"},
		}
		data, _ := json.Marshal(map[string]any{"entities": entities})
		return mcp.NewToolResultText(string(data)), nil

	case tools.ToolSummarize:
		return mcp.NewToolResultText(f.summary), nil
	}

	return mcp.NewToolResultError("unknown tool"), nil
}

func (f *fakeToolServer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestRegistry(t *testing.T) *cache.Registry {
	t.Helper()
	dir := t.TempDir()
	return cache.NewRegistry(&config.CacheConfig{
		ActiveMode: "general",
		Modes: []config.ModeConfig{
			{Name: "general", DSN: filepath.Join(dir, "general.db")},
		},
		WarmLimit:      10,
		WorkingSetSize: 16,
	})
}

func newWorkingFake() *fakeToolServer {
	return &fakeToolServer{
		results: []tools.SearchItem{
			{Title: "Elon Musk", Link: "https://example.com", Snippet: "Elon Musk is the CEO of SpaceX and Tesla."},
		},
		summary: "Elon Musk is the CEO of SpaceX and Tesla.",
	}
}

func TestAnswerEmptyQuery(t *testing.T) {
	orch := NewOrchestrator(newTestRegistry(t), newWorkingFake(), time.Second)

	_, err := orch.Answer(context.Background(), "   ", "u1")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestAnswerMissThenHit(t *testing.T) {
	fake := newWorkingFake()
	orch := NewOrchestrator(newTestRegistry(t), fake, time.Second)
	ctx := context.Background()

	// 第一次: 未命中, 走完整工具链
	first, err := orch.Answer(ctx, "Who is Elon Musk?", "u1")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Len(t, first.ToolUsage, 3)
	assert.Equal(t, "web_search", first.ToolUsage[0].Tool)
	assert.True(t, first.ToolUsage[0].Success)
	assert.NotEmpty(t, first.Entities)
	assert.Equal(t, fake.summary, first.Answer)
	assert.Equal(t, "web_search", first.Source)

	callsAfterFirst := fake.callCount()

	// 第二次: 大小写变体命中同一缓存条目, 不发起任何外部调用
	second, err := orch.Answer(ctx, "who is elon musk?", "u1")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Empty(t, second.ToolUsage)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, len(first.Entities), len(second.Entities))
	assert.Equal(t, callsAfterFirst, fake.callCount())
}

func TestAnswerSearchTimeout(t *testing.T) {
	fake := newWorkingFake()
	fake.searchDelay = 500 * time.Millisecond

	orch := NewOrchestrator(newTestRegistry(t), fake, 50*time.Millisecond)

	result, err := orch.Answer(context.Background(), "who is elon musk?", "u1")
	require.NoError(t, err)

	// 超时按一次失败的工具调用记录, 运行本身不报错
	assert.False(t, result.Cached)
	require.Len(t, result.ToolUsage, 1)
	assert.Equal(t, "web_search", result.ToolUsage[0].Tool)
	assert.False(t, result.ToolUsage[0].Success)
	assert.NotEmpty(t, result.Reasoning)
	assert.NotEmpty(t, result.Answer)
	assert.Equal(t, "degraded", result.Source)
}

func TestAnswerCallerCancelled(t *testing.T) {
	fake := newWorkingFake()
	orch := NewOrchestrator(newTestRegistry(t), fake, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := orch.Answer(ctx, "who is elon musk?", "u1")
	require.NoError(t, err)

	// 调用方已取消时不发起任何外部调用, 也不产生遥测记录
	assert.Equal(t, 0, fake.callCount())
	assert.Empty(t, result.ToolUsage)
	assert.False(t, result.Cached)
	assert.Equal(t, "degraded", result.Source)
	assert.NotEmpty(t, result.Answer)
	assert.NotEmpty(t, result.Reasoning)
}

func TestAnswerSearchFailureNotCached(t *testing.T) {
	fake := newWorkingFake()
	fake.searchFails = true

	registry := newTestRegistry(t)
	orch := NewOrchestrator(registry, fake, time.Second)
	ctx := context.Background()

	first, err := orch.Answer(ctx, "who is elon musk?", "u1")
	require.NoError(t, err)
	assert.False(t, first.ToolUsage[0].Success)

	// 降级回答不得写入缓存, 第二次仍然未命中
	second, err := orch.Answer(ctx, "who is elon musk?", "u1")
	require.NoError(t, err)
	assert.False(t, second.Cached)
}

func TestAnswerNoModeReachable(t *testing.T) {
	registry := cache.NewRegistry(&config.CacheConfig{
		ActiveMode: "general",
		Modes: []config.ModeConfig{
			{Name: "general", DSN: "/dev/null/nope.db"},
		},
	})

	orch := NewOrchestrator(registry, newWorkingFake(), time.Second)

	_, err := orch.Answer(context.Background(), "who is elon musk?", "u1")
	assert.ErrorIs(t, err, ErrOrchestration)
}
