package tools

import (
	"strings"
	"unicode"
)

// ExtractedEntity 抽取出的实体(未落库形态)
type ExtractedEntity struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// 类别关键词, 按声明顺序匹配, 命中即归类, 否则归入 topic
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"person", []string{"ceo", "founder", "president", "author", "scientist", "born", "he ", "she ", "his ", "her "}},
	{"organization", []string{"company", "corporation", "university", "agency", "inc", "ltd", "group", "startup"}},
	{"place", []string{"city", "country", "capital", "located", "region", "island", "mountain"}},
	{"product", []string{"app", "device", "software", "model", "platform", "car", "rocket"}},
}

// ExtractEntities 从文本中抽取命名实体
// 基于大写词组的启发式抽取; 打分算法是可替换的黑盒, 这里不追求召回率
func ExtractEntities(query, text string) []ExtractedEntity {
	seen := make(map[string]bool)
	var entities []ExtractedEntity

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		for _, name := range capitalizedPhrases(line) {
			key := strings.ToLower(name)
			if seen[key] || len(entities) >= 10 {
				continue
			}
			seen[key] = true

			entities = append(entities, ExtractedEntity{
				Name:        name,
				Category:    categorize(lower),
				Description: strings.TrimSpace(line),
			})
		}
	}

	return entities
}

// capitalizedPhrases 提取连续大写开头词构成的词组
func capitalizedPhrases(line string) []string {
	words := strings.Fields(line)
	var phrases []string
	var current []string

	flush := func() {
		// 单个词且长度过短的大写词多为句首, 丢弃
		if len(current) >= 2 || (len(current) == 1 && len(current[0]) >= 4) {
			phrases = append(phrases, strings.Join(current, " "))
		}
		current = nil
	}

	for i, word := range words {
		trimmed := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if trimmed == "" {
			flush()
			continue
		}

		first := []rune(trimmed)[0]
		// 忽略句首大写
		if unicode.IsUpper(first) && i > 0 {
			current = append(current, trimmed)
			continue
		}
		flush()
	}
	flush()

	return phrases
}

// categorize 根据上下文关键词推断实体类别
func categorize(context string) string {
	for _, group := range categoryKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(context, kw) {
				return group.category
			}
		}
	}
	return "topic"
}
