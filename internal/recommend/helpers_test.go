package recommend

import (
	"context"
	"sync"
	"time"

	"github.com/edgard/callwatch/internal/database"
)

type fakeBackend struct {
	mu sync.Mutex

	classify    bool
	classifyErr error
	extract     string
	extractErr  error

	classifyCalls      int
	extractCalls       int
	lastClassifyPrompt string
	lastExtractPrompt  string
}

func (f *fakeBackend) ClassifyBoolean(_ context.Context, prompt string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classifyCalls++
	f.lastClassifyPrompt = prompt
	return f.classify, f.classifyErr
}

func (f *fakeBackend) ExtractStructured(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractCalls++
	f.lastExtractPrompt = prompt
	return f.extract, f.extractErr
}

type fakeMemory struct {
	recs      []*database.Recommendation
	err       error
	calls     int
	lastLimit int
}

func (f *fakeMemory) GetRecentRecommendations(_ context.Context, _ int64, limit int) ([]*database.Recommendation, error) {
	f.calls++
	f.lastLimit = limit
	return f.recs, f.err
}

type fakeMessages struct {
	msgs []*database.Message
	err  error
}

func (f *fakeMessages) GetRecentMessagesInChat(_ context.Context, _ int64, limit int) ([]*database.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.msgs) > limit {
		return f.msgs[:limit], nil
	}
	return f.msgs, nil
}

type fakeComposer struct {
	state *State
	err   error
	calls int
}

func (f *fakeComposer) Compose(_ context.Context, msg *database.Message) (*State, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	s := *f.state
	s.RoomID = msg.ChatID
	return &s, nil
}

const (
	testAgentID int64 = 1000
	testChatID  int64 = -100
)

func testMessage(userID int64, text string) *database.Message {
	return &database.Message{
		ID:        42,
		ChatID:    testChatID,
		UserID:    userID,
		Username:  "user1",
		Content:   text,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func candidateOf(kv ...any) Candidate {
	c := Candidate{}
	for i := 0; i+1 < len(kv); i += 2 {
		c[kv[i].(string)] = kv[i+1]
	}
	return c
}
