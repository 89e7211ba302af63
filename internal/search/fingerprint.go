package search

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize 归一化查询文本
// 转小写并折叠空白, 保证大小写/空白变体映射到同一指纹
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Fingerprint 计算查询的缓存指纹
func Fingerprint(query string) string {
	hash := sha256.Sum256([]byte(Normalize(query)))
	return fmt.Sprintf("%x", hash[:8]) // 取前 8 字节
}
