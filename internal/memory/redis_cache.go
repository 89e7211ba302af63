package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache 个性化存储的 Redis 缓存层
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache 创建 Redis 缓存
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		ttl:    ttl,
	}, nil
}

// Ping 验证连接可用
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// GetHistory 获取用户对话历史(Redis)
func (r *RedisCache) GetHistory(ctx context.Context, userID string) ([]Turn, error) {
	key := fmt.Sprintf("user:%s:history", userID)

	result, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	var turns []Turn
	for _, item := range result {
		var turn Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}

	return turns, nil
}

// AppendTurn 追加单轮对话到历史
func (r *RedisCache) AppendTurn(ctx context.Context, userID string, turn Turn) error {
	key := fmt.Sprintf("user:%s:history", userID)

	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}

	// 追加到列表
	if err := r.client.RPush(ctx, key, data).Err(); err != nil {
		return err
	}

	// 更新过期时间
	return r.client.Expire(ctx, key, r.ttl).Err()
}

// SaveHistory 整体保存用户对话历史(回填)
func (r *RedisCache) SaveHistory(ctx context.Context, userID string, turns []Turn) error {
	key := fmt.Sprintf("user:%s:history", userID)

	// 清空旧数据
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return err
	}

	// 逐个插入
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			continue
		}
		if err := r.client.RPush(ctx, key, data).Err(); err != nil {
			return err
		}
	}

	// 设置过期时间
	return r.client.Expire(ctx, key, r.ttl).Err()
}

// Close 关闭 Redis 连接
func (r *RedisCache) Close() error {
	return r.client.Close()
}
