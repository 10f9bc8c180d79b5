package recommend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/edgard/callwatch/internal/database"
)

// State carries the named values the prompt templates read.
// The Composer fills the conversation fields; the Evaluator writes
// KnownRecommendations before extraction.
type State struct {
	AgentID              int64
	AgentName            string
	RoomID               int64
	RecentMessages       string
	KnownRecommendations string
}

// Composer builds the conversation State for a triggering message.
type Composer interface {
	Compose(ctx context.Context, msg *database.Message) (*State, error)
}

// MessageSource reads recent chat messages, newest first.
type MessageSource interface {
	GetRecentMessagesInChat(ctx context.Context, chatID int64, limit int) ([]*database.Message, error)
}

const timestampLayout = "2006-01-02 15:04:05"

// StoreComposer composes State from the most recent messages in the store.
type StoreComposer struct {
	messages    MessageSource
	agentID     int64
	agentName   string
	windowSize  int
	tokenBudget int
}

// NewStoreComposer returns a Composer that renders the last windowSize messages of a chat.
func NewStoreComposer(messages MessageSource, agentID int64, agentName string, windowSize int) (*StoreComposer, error) {
	if messages == nil {
		return nil, errors.New("recommend: message source must not be nil")
	}
	if windowSize <= 0 {
		windowSize = DefaultHistoryLimit
	}
	return &StoreComposer{
		messages:   messages,
		agentID:    agentID,
		agentName:  agentName,
		windowSize: windowSize,
	}, nil
}

// WithTokenBudget caps the estimated token size of the rendered window.
// Older messages are dropped first; zero disables the cap.
func (c *StoreComposer) WithTokenBudget(tokens int) *StoreComposer {
	c.tokenBudget = tokens
	return c
}

// Compose loads the recent window for msg's chat and renders it oldest first.
// msg is always part of the window even if it has not been stored yet or has
// already been pushed out of the fetched window by newer messages.
func (c *StoreComposer) Compose(ctx context.Context, msg *database.Message) (*State, error) {
	if msg == nil {
		return nil, errors.New("recommend: cannot compose state for nil message")
	}

	recent, err := c.messages.GetRecentMessagesInChat(ctx, msg.ChatID, c.windowSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", err)
	}

	window := make([]*database.Message, 0, len(recent)+1)
	found := false
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		if m == nil {
			continue
		}
		if msg.ID != 0 && m.ID == msg.ID {
			found = true
		}
		window = append(window, m)
	}
	if found {
		if len(window) > c.windowSize {
			window = window[len(window)-c.windowSize:]
		}
	} else {
		if len(window) >= c.windowSize {
			window = window[len(window)-c.windowSize+1:]
		}
		window = insertChronological(window, msg)
	}
	window = fitTokenBudget(window, c.tokenBudget, indexOf(window, msg))

	lines := make([]string, 0, len(window))
	for _, m := range window {
		lines = append(lines, c.formatMessage(m))
	}

	return &State{
		AgentID:        c.agentID,
		AgentName:      c.agentName,
		RoomID:         msg.ChatID,
		RecentMessages: strings.Join(lines, "\n"),
	}, nil
}

func (c *StoreComposer) formatMessage(m *database.Message) string {
	name := m.Username
	if m.UserID == c.agentID && c.agentName != "" {
		name = c.agentName
	}
	content := strings.TrimSpace(m.Content)
	if name == "" {
		return fmt.Sprintf("[%s] UID %d: %s", m.Timestamp.UTC().Format(timestampLayout), m.UserID, content)
	}
	return fmt.Sprintf("[%s] %s (UID %d): %s", m.Timestamp.UTC().Format(timestampLayout), name, m.UserID, content)
}

// insertChronological places msg in a chronological window, after any message
// it cannot be ordered before.
func insertChronological(window []*database.Message, msg *database.Message) []*database.Message {
	at := len(window)
	for i, m := range window {
		if sentBefore(msg, m) {
			at = i
			break
		}
	}
	return slices.Insert(window, at, msg)
}

func sentBefore(a, b *database.Message) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID != 0 && b.ID != 0 && a.ID < b.ID
}

func indexOf(window []*database.Message, msg *database.Message) int {
	for i, m := range window {
		if m == msg || (msg.ID != 0 && m.ID == msg.ID) {
			return i
		}
	}
	return -1
}
