package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Rikhin/ragversate/internal/config"
)

// SearchItem 单条搜索结果
type SearchItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// WebSearcher 外部搜索工具客户端(Serper 风格的 JSON API)
type WebSearcher struct {
	config *config.SearchConfig
	client *http.Client
}

// NewWebSearcher 创建搜索客户端
func NewWebSearcher(cfg *config.SearchConfig) *WebSearcher {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &WebSearcher{
		config: cfg,
		client: &http.Client{
			Transport: transport,
			// 单次调用的超时由调用方通过 context 控制, 这里只做兜底
			Timeout: 30 * time.Second,
		},
	}
}

// Search 执行一次搜索
func (w *WebSearcher) Search(ctx context.Context, query string) ([]SearchItem, error) {
	if w.config.APIKey == "" {
		return nil, fmt.Errorf("search api key is not configured")
	}

	payload, err := json.Marshal(map[string]any{
		"q":   query,
		"num": w.config.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", w.config.APIKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search api returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Organic []SearchItem `json:"organic"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	items := parsed.Organic
	if len(items) > w.config.MaxResults && w.config.MaxResults > 0 {
		items = items[:w.config.MaxResults]
	}

	return items, nil
}
