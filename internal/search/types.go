package search

import "github.com/Rikhin/ragversate/internal/model"

// ToolUsageRecord 单次外部调用的遥测记录
// 一次编排运行内按调用发起顺序追加, 记录后不再修改
type ToolUsageRecord struct {
	Tool       string `json:"tool"`
	Action     string `json:"action"`
	Success    bool   `json:"success"`
	DurationMS int64  `json:"duration"`
}

// PerformanceRecord 单次编排运行的耗时统计(毫秒)
type PerformanceRecord struct {
	TotalTimeMS      int64 `json:"totalTime"`
	SearchToolTimeMS int64 `json:"searchToolTime"`
	CacheTimeMS      int64 `json:"cacheTime"`
}

// Result 一次编排运行的结构化结果
// Cached 为 true 当且仅当结果来自缓存命中且没有任何外部工具调用
type Result struct {
	Answer      string            `json:"answer"`
	Entities    []model.Entity    `json:"entities"`
	Source      string            `json:"source"`
	Cached      bool              `json:"cached"`
	Performance PerformanceRecord `json:"performance"`
	ToolUsage   []ToolUsageRecord `json:"toolUsage"`
	Reasoning   string            `json:"reasoning"`
}
