package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/edgard/callwatch/internal/config"
	"github.com/edgard/callwatch/internal/database"
	"github.com/edgard/callwatch/internal/logger"
	"github.com/edgard/callwatch/internal/recommend"
)

const (
	testChatID  int64 = -1001
	testAdminID int64 = 77
)

type sentMessage struct {
	ChatID string
	Text   string
}

// fakeTelegram records sendMessage calls made through a real bot client.
type fakeTelegram struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeTelegram) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func newTestBot(t *testing.T) (*tgbot.Bot, *fakeTelegram) {
	t.Helper()
	fake := &fakeTelegram{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/sendMessage") {
			_ = r.ParseMultipartForm(1 << 20)
			fake.mu.Lock()
			fake.sent = append(fake.sent, sentMessage{ChatID: r.FormValue("chat_id"), Text: r.FormValue("text")})
			fake.mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":-1001,"type":"supergroup"}}}`))
	}))
	t.Cleanup(srv.Close)

	b, err := tgbot.New("123456:test-token", tgbot.WithServerURL(srv.URL), tgbot.WithSkipGetMe())
	require.NoError(t, err)
	return b, fake
}

func testConfig() *config.Config {
	return &config.Config{
		Telegram:    config.TelegramConfig{Token: "123456:test-token", AdminUserID: testAdminID, BotInfo: models.User{ID: 9000, Username: "callwatch_bot"}},
		Recommender: config.RecommenderConfig{Timeout: time.Minute, MaxConcurrent: 1},
		Messages:    config.DefaultMessages,
	}
}

func newTestStore(t *testing.T) database.Store {
	t.Helper()
	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, nil)
}

func newTestDeps(t *testing.T) HandlerDeps {
	t.Helper()
	return HandlerDeps{
		Logger:    logger.Discard(),
		Config:    testConfig(),
		Store:     newTestStore(t),
		Semaphore: semaphore.NewWeighted(1),
	}
}

func textUpdate(userID int64, username, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   10,
			Date: int(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix()),
			Chat: models.Chat{ID: testChatID, Type: "supergroup"},
			From: &models.User{ID: userID, Username: username, FirstName: "First"},
			Text: text,
		},
	}
}

type fakeEvaluator struct {
	mu         sync.Mutex
	applicable bool
	recs       []recommend.Recommendation
	err        error
	calls      int
}

func (f *fakeEvaluator) IsApplicable(*database.Message) bool { return f.applicable }

func (f *fakeEvaluator) Evaluate(context.Context, *database.Message) ([]recommend.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.recs, f.err
}

func TestToDatabaseMessage(t *testing.T) {
	assert.Nil(t, toDatabaseMessage(nil))
	assert.Nil(t, toDatabaseMessage(&models.Update{}))
	assert.Nil(t, toDatabaseMessage(textUpdate(5, "alice", "   ")))

	noSender := textUpdate(5, "alice", "hello")
	noSender.Message.From = nil
	assert.Nil(t, toDatabaseMessage(noSender))

	msg := toDatabaseMessage(textUpdate(5, "alice", "buy $PEPE"))
	require.NotNil(t, msg)
	assert.Equal(t, testChatID, msg.ChatID)
	assert.Equal(t, int64(5), msg.UserID)
	assert.Equal(t, "alice", msg.Username)
	assert.Equal(t, "buy $PEPE", msg.Content)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), msg.Timestamp)

	captioned := textUpdate(5, "", "")
	captioned.Message.Caption = "chart for $WIF"
	captioned.Message.From.LastName = "Last"
	msg = toDatabaseMessage(captioned)
	require.NotNil(t, msg)
	assert.Equal(t, "chart for $WIF", msg.Content)
	assert.Equal(t, "First Last", msg.Username)
}

func TestRecommendationHandler_RecordsMessageAndRecommendations(t *testing.T) {
	deps := newTestDeps(t)
	eval := &fakeEvaluator{applicable: true, recs: []recommend.Recommendation{
		{Recommender: "alice", Ticker: "ROULETTE", Type: recommend.TypeBuy, Conviction: recommend.ConvictionHigh},
	}}
	deps.Evaluator = eval
	handler := NewRecommendationHandler(&deps)

	handler(context.Background(), nil, textUpdate(5, "alice", "$ROULETTE is going to send"))

	ctx := context.Background()
	msgs, err := deps.Store.GetRecentMessagesInChat(ctx, testChatID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	recs, err := deps.Store.GetRecentRecommendations(ctx, testChatID, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "alice recommended to buy $ROULETTE with high conviction", recs[0].Content)
	assert.Equal(t, msgs[0].ID, recs[0].MessageID)
	assert.Equal(t, 1, eval.calls)
}

func TestRecommendationHandler_EvaluatorAttachedLater(t *testing.T) {
	deps := newTestDeps(t)
	handler := NewRecommendationHandler(&deps)

	handler(context.Background(), nil, textUpdate(5, "alice", "first message"))

	eval := &fakeEvaluator{applicable: true}
	deps.Evaluator = eval
	handler(context.Background(), nil, textUpdate(5, "alice", "second message"))

	msgs, err := deps.Store.GetRecentMessagesInChat(context.Background(), testChatID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, 1, eval.calls)
}

func TestRecommendationHandler_Evaluate(t *testing.T) {
	tests := []struct {
		name      string
		eval      *fakeEvaluator
		wantCalls int
		wantSaved int
	}{
		{"not applicable", &fakeEvaluator{applicable: false}, 0, 0},
		{"nothing found", &fakeEvaluator{applicable: true}, 1, 0},
		{"backend failure", &fakeEvaluator{applicable: true, err: errors.Join(recommend.ErrBackend, errors.New("503"))}, 1, 0},
		{"other failure", &fakeEvaluator{applicable: true, err: errors.New("locked")}, 1, 0},
		{"two found", &fakeEvaluator{applicable: true, recs: []recommend.Recommendation{
			{Recommender: "a", Ticker: "X", Conviction: recommend.ConvictionLow},
			{Recommender: "b", ContractAddress: "0xabc", Conviction: recommend.ConvictionNone},
		}}, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps(t)
			deps.Evaluator = tt.eval
			h := &recommendationHandler{deps: &deps}

			msg := &database.Message{ID: 3, ChatID: testChatID, UserID: 5, Content: "whatever it is", Timestamp: time.Now()}
			saved := h.evaluate(context.Background(), msg)

			assert.Equal(t, tt.wantSaved, saved)
			assert.Equal(t, tt.wantCalls, tt.eval.calls)
		})
	}
}

func TestRecommendationHandler_SemaphoreHonoursContext(t *testing.T) {
	deps := newTestDeps(t)
	eval := &fakeEvaluator{applicable: true}
	deps.Evaluator = eval
	require.True(t, deps.Semaphore.TryAcquire(1))
	h := &recommendationHandler{deps: &deps}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	saved := h.evaluate(ctx, &database.Message{ChatID: testChatID, UserID: 5, Content: "buy $PEPE now"})

	assert.Zero(t, saved)
	assert.Zero(t, eval.calls)
}

func TestStartAndHelpHandlers(t *testing.T) {
	b, fake := newTestBot(t)
	deps := newTestDeps(t)
	deps.Config.Messages.Welcome = "hi from @botname"

	NewStartHandler(deps)(context.Background(), b, textUpdate(5, "alice", "/start"))
	NewHelpHandler(deps)(context.Background(), b, textUpdate(5, "alice", "/help"))

	sent := fake.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "hi from @callwatch_bot", sent[0].Text)
	assert.Equal(t, "-1001", sent[0].ChatID)
	assert.Equal(t, config.DefaultMessages.Help, sent[1].Text)
}

func TestRecsHandler(t *testing.T) {
	b, fake := newTestBot(t)
	deps := newTestDeps(t)
	handler := NewRecsHandler(deps)

	handler(context.Background(), b, textUpdate(5, "alice", "/recs"))

	require.NoError(t, deps.Store.SaveRecommendations(context.Background(), []*database.Recommendation{
		{ChatID: testChatID, MessageID: 1, Recommender: "a", Ticker: "X", Conviction: "low", Content: "older call"},
		{ChatID: testChatID, MessageID: 2, Recommender: "b", Ticker: "Y", Conviction: "high", Content: "newer call"},
	}))
	handler(context.Background(), b, textUpdate(5, "alice", "/recs"))

	sent := fake.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, config.DefaultMessages.NoRecommendations, sent[0].Text)
	assert.True(t, strings.HasPrefix(sent[1].Text, config.DefaultMessages.RecommendationsHeader))
	assert.Less(t, strings.Index(sent[1].Text, "newer call"), strings.Index(sent[1].Text, "older call"))
}

func TestResetHandler_AdminOnly(t *testing.T) {
	b, fake := newTestBot(t)
	deps := newTestDeps(t)
	ctx := context.Background()
	require.NoError(t, deps.Store.SaveMessage(ctx, &database.Message{ChatID: testChatID, UserID: 5, Content: "buy $PEPE", Timestamp: time.Now()}))

	handler := AdminOnly(deps)(NewResetHandler(deps))

	handler(ctx, b, textUpdate(5, "alice", "/reset"))
	msgs, err := deps.Store.GetRecentMessagesInChat(ctx, testChatID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	handler(ctx, b, textUpdate(testAdminID, "admin", "/reset"))
	msgs, err = deps.Store.GetRecentMessagesInChat(ctx, testChatID, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	sent := fake.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, config.DefaultMessages.Unauthorized, sent[0].Text)
	assert.Equal(t, config.DefaultMessages.ResetConfirm, sent[1].Text)
}

func TestRegisterAllCommands(t *testing.T) {
	registered := RegisterAllCommands(newTestDeps(t))

	assert.Len(t, registered, 4)
	for _, name := range []string{"/start", "/help", "/recs", "/reset"} {
		h, ok := registered[name]
		require.True(t, ok, name)
		assert.NotNil(t, h.Handler)
		assert.Equal(t, strings.TrimPrefix(name, "/"), h.Pattern)
	}
	assert.Len(t, registered["/reset"].Middleware, 1)
	assert.Empty(t, registered["/recs"].Middleware)
}
