package cmd

import (
	"context"
	"fmt"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"

	"github.com/Rikhin/ragversate/internal/cache"
	"github.com/Rikhin/ragversate/internal/config"
	"github.com/Rikhin/ragversate/internal/llm"
	"github.com/Rikhin/ragversate/internal/memory"
	"github.com/Rikhin/ragversate/internal/search"
	"github.com/Rikhin/ragversate/internal/tools"
)

// App 应用级服务集合
// 所有服务对象显式构造并按参数传递, 生命周期从这里开始到 Close 结束
type App struct {
	Config       *config.Config
	Registry     *cache.Registry
	Orchestrator *search.Orchestrator
	ContextEng   *memory.Engine
	Store        *memory.Store

	redis *memory.RedisCache
}

// buildApp 装配全部服务
func buildApp(ctx context.Context) (*App, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	registry := cache.NewRegistry(&cfg.Cache)

	// 活跃模式的连接在装配期建立, 其余模式按需连接
	activeClient, err := registry.Connect(ctx, cfg.Cache.ActiveMode)
	if err != nil {
		registry.Close()
		return nil, err
	}

	var llmClient *llm.Client
	if cfg.LLM.Enabled {
		llmClient = llm.NewClient(&cfg.LLM)
	}

	toolServer := tools.NewMCPServer(cfg, llmClient)
	orchestrator := search.NewOrchestrator(registry, toolServer, time.Duration(cfg.Search.Timeout)*time.Second)

	// 个性化存储: Redis 可选, 不可达时降级为纯 sqlite
	var redisCache *memory.RedisCache
	if cfg.Personalization.Enabled {
		redisCache, err = memory.NewRedisCache(
			cfg.Personalization.RedisAddr,
			cfg.Personalization.RedisPassword,
			cfg.Personalization.RedisDB,
			time.Duration(cfg.Personalization.TTL)*time.Second,
		)
		if err != nil {
			logx.Warn("Redis unavailable, personalization falls back to sqlite only: %v", err)
			redisCache = nil
		}
	}

	store := memory.NewStore(activeClient.DB(), redisCache, llmClient, cfg.Personalization.HistoryLimit)
	if err := store.Initialize(ctx); err != nil {
		registry.Close()
		return nil, fmt.Errorf("failed to initialize personalization store: %w", err)
	}

	return &App{
		Config:       cfg,
		Registry:     registry,
		Orchestrator: orchestrator,
		ContextEng:   memory.NewEngine(),
		Store:        store,
		redis:        redisCache,
	}, nil
}

// Close 释放全部资源
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logx.Warn("Failed to close redis: %v", err)
		}
	}
	if err := a.Registry.Close(); err != nil {
		logx.Warn("Failed to close cache registry: %v", err)
	}
}
