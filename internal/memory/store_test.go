package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rikhin/ragversate/internal/database"
	"github.com/Rikhin/ragversate/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	store := NewStore(db, nil, nil, 20)
	require.NoError(t, store.Initialize(context.Background()))
	return store
}

func TestInitializeIdempotent(t *testing.T) {
	store := newTestStore(t)

	// 重复初始化不报错
	assert.NoError(t, store.Initialize(context.Background()))
	assert.NoError(t, store.Initialize(context.Background()))
}

func TestCallsBeforeInitialize(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	store := NewStore(db, nil, nil, 20)
	ctx := context.Background()

	err = store.StoreConversation(ctx, "u1", "q", "r", nil)
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = store.GetPersonalizedSuggestions(ctx, "u1", "q")
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = store.GetUserContext(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestStoreConversationAndSuggestions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreConversation(ctx, "u1", "What is quantum computing?", "An answer about qubits.", []model.Entity{
		{ID: "e1", Name: "Qubit", Category: "concept"},
	}))
	require.NoError(t, store.StoreConversation(ctx, "u1", "Who founded SpaceX?", "Elon Musk founded SpaceX.", nil))

	suggestions, err := store.GetPersonalizedSuggestions(ctx, "u1", "quantum entanglement")
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	assert.Contains(t, suggestions, "revisit: Who founded SpaceX?")
	assert.Contains(t, suggestions, "explore entanglement in depth")
}

func TestSuggestionsEmptyHistory(t *testing.T) {
	store := newTestStore(t)

	suggestions, err := store.GetPersonalizedSuggestions(context.Background(), "nobody", "anything")
	require.NoError(t, err)
	assert.NotNil(t, suggestions)
	assert.Empty(t, suggestions)
}

func TestGenerateFollowUpQuestionsHeuristic(t *testing.T) {
	store := newTestStore(t)

	// llm 未配置时走启发式
	followUps, err := store.GenerateFollowUpQuestions(context.Background(), "u1", "What is Go?", "Go is a language.")
	require.NoError(t, err)
	require.Len(t, followUps, 3)
	assert.Contains(t, followUps[0], "What is Go")
}

func TestGetUserContextFromHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreConversation(ctx, "u1", "quantum computing basics", "answer one", nil))
	require.NoError(t, store.StoreConversation(ctx, "u1", "how does entanglement work", "answer two", nil))

	userCtx, err := store.GetUserContext(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, userCtx)
	assert.Equal(t, "u1", userCtx.UserID)
	assert.Contains(t, userCtx.CurrentTopics, "entanglement")
	assert.Contains(t, userCtx.CurrentTopics, "quantum")
	assert.Equal(t, "how-to", userCtx.QueryIntent)
	assert.NotEmpty(t, userCtx.LikelyNextQueries)
}

func TestGetUserContextTopicRecency(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreConversation(ctx, "u1", "oldest alpha", "a", nil))
	require.NoError(t, store.StoreConversation(ctx, "u1", "middle bravo", "b", nil))
	require.NoError(t, store.StoreConversation(ctx, "u1", "newest charlie", "c", nil))

	userCtx, err := store.GetUserContext(ctx, "u1")
	require.NoError(t, err)

	// 最新一轮的话题排在最前, 截断时淘汰的是最旧的
	require.True(t, len(userCtx.CurrentTopics) >= 2)
	assert.Equal(t, "charlie", userCtx.CurrentTopics[0])
	assert.Equal(t, "newest", userCtx.CurrentTopics[1])
	assert.Equal(t, "alpha", userCtx.CurrentTopics[len(userCtx.CurrentTopics)-2])
	assert.Equal(t, "oldest", userCtx.CurrentTopics[len(userCtx.CurrentTopics)-1])
}

func TestGetUserContextNoHistory(t *testing.T) {
	store := newTestStore(t)

	userCtx, err := store.GetUserContext(context.Background(), "nobody")
	require.NoError(t, err)
	require.NotNil(t, userCtx)
	assert.Empty(t, userCtx.CurrentTopics)
	assert.Empty(t, userCtx.QueryIntent)
}
