package model

import "time"

// Entity 实体模型
// 实体一旦写入不再修改(append-only), source_query 记录产生该实体的归一化查询
type Entity struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `json:"name" gorm:"size:200;index"`
	Category    string    `json:"category" gorm:"size:50"`
	Description string    `json:"description" gorm:"type:text"`
	SourceQuery string    `json:"source_query" gorm:"type:text"`
}

// TableName 指定表名
func (Entity) TableName() string {
	return "entities"
}
