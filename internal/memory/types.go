package memory

import "time"

// EntityRef 用户上下文中的实体引用
type EntityRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// UserContext 用户上下文(内存结构)
// 列表均为定长且最近优先, 插入顺序即新近度
type UserContext struct {
	UserID              string      `json:"userId"`
	CurrentTopics       []string    `json:"currentTopics"`
	RecentEntities      []EntityRef `json:"recentEntities"`
	QueryIntent         string      `json:"queryIntent"`
	LikelyNextQueries   []string    `json:"likelyNextQueries"`
	SuggestedExpansions []string    `json:"suggestedExpansions"`
	Sentiment           string      `json:"sentiment"`
	Complexity          string      `json:"complexity"`
}

// Turn 一轮对话(兼容 Redis 存储)
type Turn struct {
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}
