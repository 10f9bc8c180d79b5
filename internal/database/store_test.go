package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	db, err := NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { CloseDB(db) })
	return NewStore(db, nil)
}

func TestExtractDBNameFromPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"storage.db", "storage.db"},
		{"file:storage.db?_pragma=busy_timeout(5000)", "storage.db"},
		{"file:my%20db.sqlite", "my db.sqlite"},
		{":memory:", ":memory:"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractDBNameFromPath(tt.in), tt.in)
	}
}

func TestStore_SaveMessageValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		msg  *Message
	}{
		{"nil", nil},
		{"no chat", &Message{UserID: 1, Content: "x", Timestamp: ts}},
		{"no user", &Message{ChatID: 1, Content: "x", Timestamp: ts}},
		{"no content", &Message{ChatID: 1, UserID: 1, Timestamp: ts}},
		{"no timestamp", &Message{ChatID: 1, UserID: 1, Content: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.SaveMessage(ctx, tt.msg))
		})
	}
}

func TestStore_RecentMessagesNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)

	for i, content := range []string{"first", "second", "third"} {
		msg := &Message{
			ChatID:    -100,
			UserID:    int64(i + 1),
			Username:  "user",
			Content:   content,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.SaveMessage(ctx, msg))
		assert.NotZero(t, msg.ID)
	}
	require.NoError(t, store.SaveMessage(ctx, &Message{ChatID: -200, UserID: 9, Content: "other chat", Timestamp: base}))

	msgs, err := store.GetRecentMessagesInChat(ctx, -100, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "third", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.True(t, msgs[0].Timestamp.Equal(base.Add(2*time.Minute)))

	_, err = store.GetRecentMessagesInChat(ctx, 0, 10)
	assert.Error(t, err)
}

func TestStore_RecommendationsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	recs := []*Recommendation{
		{ChatID: -100, MessageID: 1, Recommender: "user1", Ticker: "ROULETTE", Type: "buy", Conviction: "high", Content: "A"},
		{ChatID: -100, MessageID: 2, Recommender: "user2", ContractAddress: "0xabc", Type: "sell", Conviction: "low", Content: "B"},
	}
	require.NoError(t, store.SaveRecommendations(ctx, recs))
	require.NoError(t, store.SaveRecommendations(ctx, []*Recommendation{
		{ChatID: -100, Recommender: "user3", Ticker: "SAMOYED", Conviction: "medium", Content: "C"},
	}))
	assert.NotZero(t, recs[0].ID)

	got, err := store.GetRecentRecommendations(ctx, -100, 20)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"C", "B", "A"}, []string{got[0].Content, got[1].Content, got[2].Content})
	assert.Equal(t, "0xabc", got[1].ContractAddress)

	other, err := store.GetRecentRecommendations(ctx, -200, 20)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_SaveRecommendationsIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveRecommendations(ctx, []*Recommendation{
		{ChatID: -100, Recommender: "ok", Ticker: "OK", Conviction: "low", Content: "ok"},
		{ChatID: -100, Recommender: "  ", Ticker: "BAD", Conviction: "low", Content: "bad"},
	})
	require.Error(t, err)

	got, err := store.GetRecentRecommendations(ctx, -100, 20)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_PruneRecommendations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.SaveRecommendations(ctx, []*Recommendation{
		{ChatID: -100, Recommender: "old", Ticker: "OLD", Conviction: "low", Content: "old", CreatedAt: now.Add(-48 * time.Hour)},
		{ChatID: -100, Recommender: "new", Ticker: "NEW", Conviction: "low", Content: "new", CreatedAt: now},
	}))

	deleted, err := store.PruneRecommendations(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	got, err := store.GetRecentRecommendations(ctx, -100, 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Content)

	_, err = store.PruneRecommendations(ctx, time.Time{})
	assert.Error(t, err)
}

func TestStore_DeleteChatData(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, store.SaveMessage(ctx, &Message{ChatID: -100, UserID: 1, Content: "a", Timestamp: ts}))
	require.NoError(t, store.SaveMessage(ctx, &Message{ChatID: -200, UserID: 1, Content: "b", Timestamp: ts}))
	require.NoError(t, store.SaveRecommendations(ctx, []*Recommendation{
		{ChatID: -100, Recommender: "u", Ticker: "T", Conviction: "low", Content: "x"},
	}))

	require.NoError(t, store.DeleteChatData(ctx, -100))

	msgs, err := store.GetRecentMessagesInChat(ctx, -100, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	recs, err := store.GetRecentRecommendations(ctx, -100, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)

	kept, err := store.GetRecentMessagesInChat(ctx, -200, 10)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestStore_MaintenanceAndPing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.RunSQLMaintenance(ctx))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, store.RunSQLMaintenance(cancelled))
}
