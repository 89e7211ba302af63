package cache

import (
	"context"
	"fmt"
	"sync"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"golang.org/x/sync/errgroup"

	"github.com/Rikhin/ragversate/internal/config"
	"github.com/Rikhin/ragversate/internal/database"
)

// WarmResult 单个模式的预热结果
type WarmResult struct {
	Warmed bool   `json:"warmed"`
	Error  string `json:"error,omitempty"`
}

// WarmReport 所有模式的预热汇总
type WarmReport struct {
	AllSuccess bool                  `json:"success"`
	Results    map[string]WarmResult `json:"results"`
}

// Registry 缓存模式注册表
// 管理所有已声明的缓存模式, 按需建立连接并独立预热各模式
type Registry struct {
	cfg *config.CacheConfig

	mu      sync.Mutex
	clients map[string]*Client
	connMu  map[string]*sync.Mutex // 每个模式的连接建立互斥锁
}

// NewRegistry 创建缓存模式注册表
func NewRegistry(cfg *config.CacheConfig) *Registry {
	connMu := make(map[string]*sync.Mutex, len(cfg.Modes))
	for _, mode := range cfg.Modes {
		connMu[mode.Name] = &sync.Mutex{}
	}

	return &Registry{
		cfg:     cfg,
		clients: make(map[string]*Client),
		connMu:  connMu,
	}
}

// AvailableModes 返回静态声明的全部模式, 该操作永不失败
func (r *Registry) AvailableModes() []config.ModeConfig {
	modes := make([]config.ModeConfig, len(r.cfg.Modes))
	copy(modes, r.cfg.Modes)
	return modes
}

// ActiveMode 返回当前默认模式名称
func (r *Registry) ActiveMode() string {
	return r.cfg.ActiveMode
}

// Connect 连接指定模式, 幂等操作
// 已有存活连接时直接复用; 连接建立按模式串行化, 查询流量不受此锁影响
func (r *Registry) Connect(ctx context.Context, mode string) (*Client, error) {
	modeCfg, ok := r.cfg.GetMode(mode)
	if !ok {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrConnection, mode)
	}

	connMu := r.connMu[mode]
	connMu.Lock()
	defer connMu.Unlock()

	// 复用已有连接
	r.mu.Lock()
	client, exists := r.clients[mode]
	r.mu.Unlock()
	if exists {
		return client, nil
	}

	// 建立新连接
	db, err := database.Open(modeCfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: mode %s: %v", ErrConnection, mode, err)
	}

	client, err = NewClient(mode, db, r.cfg.WorkingSetSize)
	if err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("%w: mode %s: %v", ErrConnection, mode, err)
	}

	r.mu.Lock()
	r.clients[mode] = client
	r.mu.Unlock()

	logx.Info("🔌 Cache mode connected, mode %s, dsn %s", mode, modeCfg.DSN)
	return client, nil
}

// ConnectAny 优先连接默认模式, 失败时依次尝试其余模式
// 所有模式都不可达时返回最后一次的连接错误
func (r *Registry) ConnectAny(ctx context.Context) (*Client, error) {
	client, err := r.Connect(ctx, r.cfg.ActiveMode)
	if err == nil {
		return client, nil
	}

	lastErr := err
	for _, mode := range r.cfg.Modes {
		if mode.Name == r.cfg.ActiveMode {
			continue
		}
		client, err = r.Connect(ctx, mode.Name)
		if err == nil {
			logx.Warn("Active mode %s unreachable, fell back to mode %s", r.cfg.ActiveMode, mode.Name)
			return client, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

// WarmCache 预热指定模式的热点工作集
// 只做增量加载, 不会阻塞读取方, 可与查询流量并发
func (r *Registry) WarmCache(ctx context.Context, mode string) error {
	client, err := r.Connect(ctx, mode)
	if err != nil {
		return err
	}

	count, err := client.WarmWorkingSet(ctx, r.cfg.WarmLimit)
	if err != nil {
		return fmt.Errorf("failed to warm mode %s: %w", mode, err)
	}

	logx.Info("🔥 Cache warmed, mode %s, records %d", mode, count)
	return nil
}

// WarmAll 并发预热所有模式
// 单个模式的连接或预热失败只记录在该模式的结果里, 不影响其余模式
func (r *Registry) WarmAll(ctx context.Context) *WarmReport {
	report := &WarmReport{
		AllSuccess: true,
		Results:    make(map[string]WarmResult, len(r.cfg.Modes)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, mode := range r.cfg.Modes {
		name := mode.Name
		g.Go(func() error {
			result := WarmResult{Warmed: true}
			if err := r.WarmCache(gctx, name); err != nil {
				logx.Warn("Failed to warm cache mode %s: %v", name, err)
				result = WarmResult{Warmed: false, Error: err.Error()}
			}

			mu.Lock()
			report.Results[name] = result
			if !result.Warmed {
				report.AllSuccess = false
			}
			mu.Unlock()

			// 失败按模式捕获, 不向 errgroup 传播
			return nil
		})
	}

	_ = g.Wait()
	return report
}

// Close 关闭所有已建立的连接
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for mode, client := range r.clients {
		if err := database.Close(client.db); err != nil {
			logx.Warn("Failed to close cache mode %s: %v", mode, err)
			lastErr = err
		}
		delete(r.clients, mode)
	}
	return lastErr
}
