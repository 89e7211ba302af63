package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rikhin/ragversate/internal/config"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	registry := NewRegistry(&config.CacheConfig{
		ActiveMode: "general",
		Modes: []config.ModeConfig{
			{Name: "general", DSN: filepath.Join(dir, "general.db")},
			{Name: "research", DSN: filepath.Join(dir, "research.db")},
		},
		WarmLimit:      10,
		WorkingSetSize: 16,
	})
	t.Cleanup(func() { registry.Close() })
	return registry
}

func TestAvailableModes(t *testing.T) {
	registry := newTestRegistry(t)

	modes := registry.AvailableModes()
	require.Len(t, modes, 2)
	assert.Equal(t, "general", modes[0].Name)
	assert.Equal(t, "research", modes[1].Name)
	assert.Equal(t, "general", registry.ActiveMode())
}

func TestConnectIdempotent(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	first, err := registry.Connect(ctx, "general")
	require.NoError(t, err)

	// 重复连接复用同一个客户端
	second, err := registry.Connect(ctx, "general")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestConnectUnknownMode(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.Connect(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrConnection)
}

func TestConnectBadDSN(t *testing.T) {
	registry := NewRegistry(&config.CacheConfig{
		ActiveMode: "general",
		Modes: []config.ModeConfig{
			{Name: "general", DSN: "/dev/null/nope.db"},
		},
	})

	_, err := registry.Connect(context.Background(), "general")
	assert.ErrorIs(t, err, ErrConnection)
}

func TestConnectAnyFallsBack(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry(&config.CacheConfig{
		ActiveMode: "general",
		Modes: []config.ModeConfig{
			{Name: "general", DSN: "/dev/null/nope.db"},
			{Name: "research", DSN: filepath.Join(dir, "research.db")},
		},
		WorkingSetSize: 16,
	})
	t.Cleanup(func() { registry.Close() })

	client, err := registry.ConnectAny(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "research", client.Mode())
}

func TestWarmAllPartialFailure(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry(&config.CacheConfig{
		ActiveMode: "general",
		Modes: []config.ModeConfig{
			{Name: "general", DSN: filepath.Join(dir, "general.db")},
			{Name: "broken", DSN: "/dev/null/nope.db"},
		},
		WarmLimit:      10,
		WorkingSetSize: 16,
	})
	t.Cleanup(func() { registry.Close() })

	report := registry.WarmAll(context.Background())

	// 单模式失败只记录在自己的结果里
	assert.False(t, report.AllSuccess)
	require.Len(t, report.Results, 2)
	assert.True(t, report.Results["general"].Warmed)
	assert.False(t, report.Results["broken"].Warmed)
	assert.NotEmpty(t, report.Results["broken"].Error)
}

func TestWarmAllSuccess(t *testing.T) {
	registry := newTestRegistry(t)

	report := registry.WarmAll(context.Background())
	assert.True(t, report.AllSuccess)
	require.Len(t, report.Results, 2)
	for _, result := range report.Results {
		assert.True(t, result.Warmed)
	}
}
