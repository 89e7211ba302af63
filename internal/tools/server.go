package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Rikhin/ragversate/internal/config"
	"github.com/Rikhin/ragversate/internal/llm"
)

// 工具名称常量
const (
	ToolWebSearch       = "web_search"
	ToolExtractEntities = "extract_entities"
	ToolSummarize       = "summarize"
)

// MCPServer 内置工具服务器
// 对编排器暴露 web_search / extract_entities / summarize 三个工具
type MCPServer struct {
	config   *config.Config
	searcher *WebSearcher
	llm      *llm.Client
}

// NewMCPServer 创建工具服务器
func NewMCPServer(cfg *config.Config, llmClient *llm.Client) *MCPServer {
	return &MCPServer{
		config:   cfg,
		searcher: NewWebSearcher(&cfg.Search),
		llm:      llmClient,
	}
}

// ListTools 列出全部可用工具
func (s *MCPServer) ListTools(ctx context.Context) (*mcp.ListToolsResult, error) {
	return &mcp.ListToolsResult{
		Tools: []mcp.Tool{
			mcp.NewTool(ToolWebSearch,
				mcp.WithDescription("搜索互联网并返回结果片段"),
				mcp.WithString("query", mcp.Required(), mcp.Description("搜索查询")),
			),
			mcp.NewTool(ToolExtractEntities,
				mcp.WithDescription("从文本中抽取命名实体"),
				mcp.WithString("query", mcp.Required(), mcp.Description("原始查询")),
				mcp.WithString("text", mcp.Required(), mcp.Description("待抽取的文本")),
			),
			mcp.NewTool(ToolSummarize,
				mcp.WithDescription("根据搜索结果生成摘要回答"),
				mcp.WithString("query", mcp.Required(), mcp.Description("原始查询")),
				mcp.WithString("text", mcp.Required(), mcp.Description("搜索结果文本")),
			),
		},
	}, nil
}

// CallTool 调用指定工具
func (s *MCPServer) CallTool(ctx context.Context, name string, arguments map[string]any) (*mcp.CallToolResult, error) {
	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = arguments

	switch name {
	case ToolWebSearch:
		return s.handleWebSearch(ctx, request)
	case ToolExtractEntities:
		return s.handleExtractEntities(ctx, request)
	case ToolSummarize:
		return s.handleSummarize(ctx, request)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// ==================== 工具处理函数 ====================

// handleWebSearch 处理外部搜索请求
func (s *MCPServer) handleWebSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("invalid arguments type"), nil
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	items, err := s.searcher.Search(ctx, query)
	if err != nil {
		logx.Error("Web search failed: %v", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := json.Marshal(map[string]any{"results": items})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}

// handleExtractEntities 处理实体抽取请求
func (s *MCPServer) handleExtractEntities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("invalid arguments type"), nil
	}

	query, _ := args["query"].(string)
	text, ok := args["text"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text parameter is required"), nil
	}

	entities := ExtractEntities(query, text)

	data, err := json.Marshal(map[string]any{"entities": entities})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}

// handleSummarize 处理摘要生成请求
func (s *MCPServer) handleSummarize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("invalid arguments type"), nil
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	text, _ := args["text"].(string)
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("no content to summarize"), nil
	}

	// 优先使用 LLM 生成摘要, 不可用或失败时降级为片段拼接
	if s.llm.Enabled() {
		summary, err := s.llm.Summarize(ctx, query, strings.Split(text, "\n"))
		if err == nil && summary != "" {
			return mcp.NewToolResultText(summary), nil
		}
		logx.Warn("LLM summarize failed, falling back to snippet summary: %v", err)
	}

	return mcp.NewToolResultText(snippetSummary(text)), nil
}

// snippetSummary 降级摘要: 取前若干行片段
func snippetSummary(text string) string {
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
		if len(kept) >= 3 {
			break
		}
	}
	return strings.Join(kept, " ")
}
