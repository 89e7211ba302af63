package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Rikhin/ragversate/internal/model"
)

var (
	// ErrConnection 缓存后端不可达
	ErrConnection = errors.New("cache backend unreachable")
	// ErrStore 缓存后端写入失败
	ErrStore = errors.New("cache store failure")
)

// Stats 缓存命中统计
type Stats struct {
	HitCount     int64   `json:"hit_count"`
	MissCount    int64   `json:"miss_count"`
	HitRate      float64 `json:"hit_rate"`
	TotalQueries int64   `json:"total_queries"`
}

// Client 单个缓存模式的客户端
// 热点工作集(LRU)在 sqlite 之前, 读取顺序: LRU -> sqlite -> 回填 LRU
type Client struct {
	mode   string
	db     *gorm.DB
	hot    *lru.Cache[string, *model.CacheRecord]
	hotCap int
}

// NewClient 创建缓存客户端
func NewClient(mode string, db *gorm.DB, workingSetSize int) (*Client, error) {
	if workingSetSize <= 0 {
		workingSetSize = 512
	}

	hot, err := lru.New[string, *model.CacheRecord](workingSetSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create working set: %w", err)
	}

	return &Client{
		mode:   mode,
		db:     db,
		hot:    hot,
		hotCap: workingSetSize,
	}, nil
}

// Mode 返回该客户端所属的模式名称
func (c *Client) Mode() string {
	return c.mode
}

// DB 返回底层数据库句柄, 供同一模式下的其他存储层复用连接
func (c *Client) DB() *gorm.DB {
	return c.db
}

// HealthCheck 健康检查, 任何连接或协议错误均返回 false
func (c *Client) HealthCheck(ctx context.Context) bool {
	sqlDB, err := c.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}

// GetAllEntities 获取该模式下的全部实体, 空存储返回空切片而非错误
func (c *Client) GetAllEntities(ctx context.Context) ([]model.Entity, error) {
	entities := []model.Entity{}
	if err := c.db.WithContext(ctx).Order("created_at DESC").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}
	return entities, nil
}

// SearchEntities 按名称前缀搜索实体
func (c *Client) SearchEntities(ctx context.Context, prefix string, limit int) ([]model.Entity, error) {
	if limit <= 0 {
		limit = 10
	}

	entities := []model.Entity{}
	err := c.db.WithContext(ctx).
		Where("name LIKE ?", prefix+"%").
		Order("created_at DESC").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search entities: %w", err)
	}
	return entities, nil
}

// SaveEntities 持久化新抽取的实体(append-only)
func (c *Client) SaveEntities(ctx context.Context, entities []model.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	if err := c.db.WithContext(ctx).Create(&entities).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

// GetByFingerprint 根据指纹获取缓存记录
// 未命中返回 (nil, nil), 与错误严格区分
func (c *Client) GetByFingerprint(ctx context.Context, fingerprint string) (*model.CacheRecord, error) {
	// 1. 先查热点工作集
	if rec, ok := c.hot.Get(fingerprint); ok {
		c.incrementHit(ctx, fingerprint)
		return rec, nil
	}

	// 2. 从 sqlite 读取
	var record model.CacheRecord
	err := c.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // 未命中
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache record: %w", err)
	}

	// 更新命中统计
	err = c.db.WithContext(ctx).Model(&record).Updates(map[string]any{
		"hit_count":   gorm.Expr("hit_count + 1"),
		"last_hit_at": time.Now(),
	}).Error
	if err != nil {
		logx.Debug("Failed to update hit count, fingerprint %s: %v", fingerprint, err)
	}

	// 3. 回填热点工作集
	c.hot.Add(fingerprint, &record)

	return &record, nil
}

// Put 写入缓存记录, 同一指纹覆盖旧记录(后写胜出)
func (c *Client) Put(ctx context.Context, fingerprint string, record *model.CacheRecord) error {
	record.Fingerprint = fingerprint
	if record.LastHitAt.IsZero() {
		record.LastHitAt = time.Now()
	}
	if record.HitCount == 0 {
		record.HitCount = 1
	}

	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "fingerprint"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"summary", "source", "entities_json", "last_hit_at", "updated_at",
		}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	// 同步更新热点工作集
	c.hot.Add(fingerprint, record)

	return nil
}

// WarmWorkingSet 将最近命中的记录加载进热点工作集
// 只做增量添加, 不驱逐已有数据, 可与查询流量并发执行
func (c *Client) WarmWorkingSet(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}

	// 预热只做增量添加, 不得挤掉在线流量写入的热点条目
	if remaining := c.hotCap - c.hot.Len(); limit > remaining {
		limit = remaining
	}
	if limit <= 0 {
		return 0, nil
	}

	var records []model.CacheRecord
	err := c.db.WithContext(ctx).
		Order("hit_count DESC, last_hit_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load warm records: %w", err)
	}

	for i := range records {
		rec := records[i]
		c.hot.Add(rec.Fingerprint, &rec)
	}

	logx.Debug("Warmed %d records into working set, mode %s", len(records), c.mode)
	return len(records), nil
}

// Stats 获取缓存命中统计
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var totalQueries int64
	var hitCount int64

	// 统计总查询次数
	if err := c.db.WithContext(ctx).Model(&model.CacheRecord{}).
		Select("COALESCE(SUM(hit_count), 0)").
		Scan(&totalQueries).Error; err != nil {
		return nil, err
	}

	// 统计命中次数(hit_count > 1 的记录)
	if err := c.db.WithContext(ctx).Model(&model.CacheRecord{}).
		Where("hit_count > 1").
		Count(&hitCount).Error; err != nil {
		return nil, err
	}

	stats := &Stats{
		HitCount:     hitCount,
		MissCount:    totalQueries - hitCount,
		TotalQueries: totalQueries,
	}

	if totalQueries > 0 {
		stats.HitRate = float64(hitCount) / float64(totalQueries)
	}

	return stats, nil
}

// incrementHit 增加缓存命中次数
func (c *Client) incrementHit(ctx context.Context, fingerprint string) {
	err := c.db.WithContext(ctx).Model(&model.CacheRecord{}).
		Where("fingerprint = ?", fingerprint).
		Updates(map[string]any{
			"hit_count":   gorm.Expr("hit_count + 1"),
			"last_hit_at": time.Now(),
		}).Error
	if err != nil {
		logx.Debug("Failed to update hit count, fingerprint %s: %v", fingerprint, err)
	}
}
