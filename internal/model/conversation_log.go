package model

import "time"

// ConversationLog 对话记录模型(个性化存储的持久层)
type ConversationLog struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	CreatedAt    time.Time `json:"created_at"`
	UserID       string    `json:"user_id" gorm:"index;size:100;not null"`
	Query        string    `json:"query" gorm:"type:text;not null"`
	Response     string    `json:"response" gorm:"type:text"`
	EntitiesJSON string    `json:"-" gorm:"type:text"` // 该轮对话涉及的实体(JSON 序列化存储)
}

// TableName 指定表名
func (ConversationLog) TableName() string {
	return "conversation_logs"
}
