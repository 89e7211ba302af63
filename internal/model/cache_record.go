package model

import (
	"encoding/json"
	"time"
)

// CacheRecord 问答缓存记录模型
// 以查询指纹为键, 每个指纹同一时刻最多对应一条记录(覆盖写,后写胜出)
type CacheRecord struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Fingerprint  string    `json:"fingerprint" gorm:"size:64;not null;uniqueIndex"` // 查询的归一化指纹
	Summary      string    `json:"summary" gorm:"type:text"`
	Source       string    `json:"source" gorm:"size:50"`
	EntitiesJSON string    `json:"-" gorm:"type:text"` // 关联实体(JSON 序列化存储)
	HitCount     int       `json:"hit_count" gorm:"default:1;index"`
	LastHitAt    time.Time `json:"last_hit_at"`
}

// TableName 指定表名
func (CacheRecord) TableName() string {
	return "cache_records"
}

// Entities 反序列化关联实体
func (r *CacheRecord) Entities() []Entity {
	if r.EntitiesJSON == "" {
		return []Entity{}
	}
	var entities []Entity
	if err := json.Unmarshal([]byte(r.EntitiesJSON), &entities); err != nil {
		return []Entity{}
	}
	return entities
}

// SetEntities 序列化并设置关联实体
func (r *CacheRecord) SetEntities(entities []Entity) error {
	data, err := json.Marshal(entities)
	if err != nil {
		return err
	}
	r.EntitiesJSON = string(data)
	return nil
}
