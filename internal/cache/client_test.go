package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rikhin/ragversate/internal/database"
	"github.com/Rikhin/ragversate/internal/model"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	client, err := NewClient("general", db, 16)
	require.NoError(t, err)
	return client
}

func TestHealthCheck(t *testing.T) {
	client := newTestClient(t)
	assert.True(t, client.HealthCheck(context.Background()))
}

func TestGetByFingerprintMiss(t *testing.T) {
	client := newTestClient(t)

	record, err := client.GetByFingerprint(context.Background(), "deadbeefdeadbeef")
	// 未命中不是错误
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestPutThenGet(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	err := client.Put(ctx, "aaaa000011112222", &model.CacheRecord{
		Summary: "Go is a programming language designed at Google.",
		Source:  "web_search",
	})
	require.NoError(t, err)

	record, err := client.GetByFingerprint(ctx, "aaaa000011112222")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Go is a programming language designed at Google.", record.Summary)
	assert.Equal(t, "web_search", record.Source)
}

func TestPutOverwritesSameFingerprint(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Put(ctx, "bbbb000011112222", &model.CacheRecord{
		Summary: "first answer",
		Source:  "web_search",
	}))
	require.NoError(t, client.Put(ctx, "bbbb000011112222", &model.CacheRecord{
		Summary: "second answer",
		Source:  "web_search",
	}))

	// 同一指纹后写胜出
	record, err := client.GetByFingerprint(ctx, "bbbb000011112222")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "second answer", record.Summary)
}

func TestEntitiesRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	record := &model.CacheRecord{Summary: "summary text here", Source: "web_search"}
	require.NoError(t, record.SetEntities([]model.Entity{
		{ID: "e1", Name: "SpaceX", Category: "organization"},
	}))
	require.NoError(t, client.Put(ctx, "cccc000011112222", record))

	got, err := client.GetByFingerprint(ctx, "cccc000011112222")
	require.NoError(t, err)
	require.NotNil(t, got)

	entities := got.Entities()
	require.Len(t, entities, 1)
	assert.Equal(t, "SpaceX", entities[0].Name)
}

func TestSearchEntities(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	now := time.Now()
	seed := []model.Entity{
		{ID: "e1", Name: "Elon Musk", Category: "person", CreatedAt: now},
		{ID: "e2", Name: "Eloquent JavaScript", Category: "concept", CreatedAt: now},
		{ID: "e3", Name: "SpaceX", Category: "organization", CreatedAt: now},
	}
	require.NoError(t, client.SaveEntities(ctx, seed))

	matches, err := client.SearchEntities(ctx, "Elo", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	all, err := client.GetAllEntities(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSearchEntitiesEmptyStore(t *testing.T) {
	client := newTestClient(t)

	matches, err := client.SearchEntities(context.Background(), "zzz", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.NotNil(t, matches)
}

func TestHitCountIncrements(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Put(ctx, "abcd000011112222", &model.CacheRecord{
		Summary: "cached answer with enough length",
		Source:  "web_search",
	}))

	for i := 0; i < 2; i++ {
		record, err := client.GetByFingerprint(ctx, "abcd000011112222")
		require.NoError(t, err)
		require.NotNil(t, record)
	}

	// 命中计数在请求路径内同步落库
	var stored model.CacheRecord
	require.NoError(t, client.DB().Where("fingerprint = ?", "abcd000011112222").First(&stored).Error)
	assert.Equal(t, 3, stored.HitCount)
}

func TestWarmWorkingSet(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	for _, fp := range []string{"dddd000000000001", "dddd000000000002", "dddd000000000003"} {
		require.NoError(t, client.Put(ctx, fp, &model.CacheRecord{
			Summary: "answer for " + fp,
			Source:  "web_search",
		}))
	}

	warmed, err := client.WarmWorkingSet(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, warmed)
}

func TestWarmWorkingSetNeverEvicts(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	seeder, err := NewClient("general", db, 16)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, seeder.Put(ctx, fmt.Sprintf("ffff00001111%04d", i), &model.CacheRecord{
			Summary: "answer with enough length",
			Source:  "web_search",
		}))
	}

	// 预热数量被钳制到工作集的剩余容量
	client, err := NewClient("general", db, 2)
	require.NoError(t, err)

	warmed, err := client.WarmWorkingSet(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, warmed)

	// 工作集已满后预热不再添加(增量语义, 永不驱逐)
	warmed, err = client.WarmWorkingSet(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, warmed)
}

func TestStats(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalQueries)
	assert.Equal(t, float64(0), stats.HitRate)

	require.NoError(t, client.Put(ctx, "eeee000011112222", &model.CacheRecord{
		Summary: "cached answer here",
		Source:  "web_search",
	}))

	stats, err = client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalQueries)
}
