package llm

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	openai "github.com/sashabaranov/go-openai"

	"github.com/Rikhin/ragversate/internal/config"
)

// Client OpenAI 兼容的 LLM 客户端
type Client struct {
	config *config.LLMConfig
	client *openai.Client
}

// NewClient 创建 LLM 客户端
func NewClient(cfg *config.LLMConfig) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)

	// 配置 BaseURL
	if cfg.BaseURL != "" {
		// 直接使用配置的 BaseURL,不自动添加 /v1
		// 因为不同的 API 提供商可能有不同的路径格式
		clientConfig.BaseURL = cfg.BaseURL
		logx.Debug("LLM client BaseURL: %s", cfg.BaseURL)
	}

	// 配置 HTTP 客户端
	// 关键:禁用 HTTP/2,强制使用 HTTP/1.1 以避免 INTERNAL_ERROR
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		// 禁用 HTTP/2 - 设置空的 TLSNextProto map 会阻止 HTTP/2
		TLSNextProto: make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
	}

	clientConfig.HTTPClient = &http.Client{
		Transport: transport,
		Timeout:   120 * time.Second,
	}

	client := openai.NewClientWithConfig(clientConfig)

	logx.Info("LLM client initialized, model %s", cfg.Model)

	return &Client{
		config: cfg,
		client: client,
	}
}

// Enabled 判断 LLM 是否可用
func (c *Client) Enabled() bool {
	return c != nil && c.config.Enabled && c.config.APIKey != ""
}

// Summarize 根据搜索片段生成查询摘要
func (c *Client) Summarize(ctx context.Context, query string, snippets []string) (string, error) {
	prompt := fmt.Sprintf(
		"Answer the question concisely based only on the search results below.\n\nQuestion: %s\n\nSearch results:\n%s",
		query, strings.Join(snippets, "\n- "),
	)

	return c.complete(ctx, "You are a precise research assistant. Answer in 2-4 sentences.", prompt)
}

// GenerateFollowUps 根据本轮问答生成候选追问
func (c *Client) GenerateFollowUps(ctx context.Context, query, answer string, n int) ([]string, error) {
	if n <= 0 {
		n = 3
	}

	prompt := fmt.Sprintf(
		"Given the question %q and the answer %q, suggest %d natural follow-up questions, one per line, no numbering.",
		query, answer, n,
	)

	content, err := c.complete(ctx, "You generate short follow-up questions.", prompt)
	if err != nil {
		return nil, err
	}

	var followUps []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-•*0123456789. "))
		if line == "" {
			continue
		}
		followUps = append(followUps, line)
		if len(followUps) >= n {
			break
		}
	}
	return followUps, nil
}

// complete 执行一次非流式对话补全
func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("llm completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
