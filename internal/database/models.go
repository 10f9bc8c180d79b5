package database

import "time"

// Message is a chat message observed in a Telegram group.
// Messages form the conversation window the recommendation pipeline reads.
type Message struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	ChatID    int64     `db:"chat_id"`
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	Content   string    `db:"content"`
	Timestamp time.Time `db:"timestamp"`
}

// Recommendation is a persisted trade recommendation extracted from a chat.
// Content holds the narrative form that is fed back into later prompts as
// "already known" context; the typed columns are for queries and display.
type Recommendation struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	ChatID          int64  `db:"chat_id"`
	MessageID       uint   `db:"message_id"`
	Recommender     string `db:"recommender"`
	Ticker          string `db:"ticker"`
	ContractAddress string `db:"contract_address"`
	Type            string `db:"type"`
	Conviction      string `db:"conviction"`
	Content         string `db:"content"`
}
