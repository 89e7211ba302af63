package memory

import (
	"fmt"
	"strings"
)

// 话题抽取时忽略的常见词
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "what": true, "who": true,
	"how": true, "why": true, "when": true, "where": true, "which": true,
	"does": true, "did": true, "are": true, "was": true, "were": true,
	"about": true, "with": true, "from": true, "that": true, "this": true,
	"can": true, "could": true, "will": true, "would": true, "should": true,
	"tell": true, "show": true, "give": true, "find": true,
}

// extractTopics 从查询中抽取话题词
func extractTopics(query string) []string {
	var topics []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, "?!.,;:\"'")
		if len(word) < 4 || stopwords[word] {
			continue
		}
		topics = append(topics, word)
	}
	return topics
}

// defaultIntentScorer 默认意图打分器(关键词启发式)
func defaultIntentScorer(query string) string {
	lower := strings.ToLower(query)
	switch {
	case strings.HasPrefix(lower, "how"):
		return "how-to"
	case strings.HasPrefix(lower, "why"):
		return "explanation"
	case strings.HasPrefix(lower, "who") || strings.HasPrefix(lower, "what is") || strings.HasPrefix(lower, "what are"):
		return "lookup"
	case strings.Contains(lower, "compare") || strings.Contains(lower, " vs "):
		return "comparison"
	case strings.Contains(lower, "latest") || strings.Contains(lower, "news") || strings.Contains(lower, "recent"):
		return "news"
	default:
		return "exploration"
	}
}

// defaultSentimentScorer 默认情感打分器(关键词启发式)
func defaultSentimentScorer(query string) string {
	lower := strings.ToLower(query)
	negative := []string{"problem", "issue", "wrong", "fail", "bad", "worst", "broken"}
	positive := []string{"best", "great", "love", "good", "amazing", "favorite"}

	for _, word := range negative {
		if strings.Contains(lower, word) {
			return "negative"
		}
	}
	for _, word := range positive {
		if strings.Contains(lower, word) {
			return "positive"
		}
	}
	return "neutral"
}

// defaultComplexityScorer 默认复杂度打分器(长度启发式)
func defaultComplexityScorer(query string) string {
	words := len(strings.Fields(query))
	switch {
	case words <= 4:
		return "simple"
	case words <= 12:
		return "moderate"
	default:
		return "complex"
	}
}

// likelyNextQueries 根据近期话题预测可能的后续查询
func likelyNextQueries(topics []string) []string {
	var queries []string
	for _, topic := range topics {
		queries = append(queries, fmt.Sprintf("tell me more about %s", topic))
		if len(queries) >= nextCapacity {
			break
		}
	}
	return queries
}

// suggestedExpansions 生成查询扩展建议
func suggestedExpansions(query string, topics []string) []string {
	var expansions []string
	base := strings.TrimRight(strings.TrimSpace(query), "?!.")
	if base != "" {
		expansions = append(expansions, base+" explained", base+" latest news")
	}
	if len(topics) >= 2 {
		expansions = append(expansions, fmt.Sprintf("%s and %s", topics[0], topics[1]))
	}
	if len(expansions) > nextCapacity {
		expansions = expansions[:nextCapacity]
	}
	return expansions
}
