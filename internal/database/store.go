package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/callwatch/internal/logger"
)

const (
	defaultQueryLimit = 20
	maxQueryLimit     = 100
)

// Store defines the database operations used by the bot and the recommendation pipeline.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage inserts a new message record and sets its ID.
	SaveMessage(ctx context.Context, message *Message) error

	// GetRecentMessagesInChat returns up to limit messages for the chat, newest first.
	GetRecentMessagesInChat(ctx context.Context, chatID int64, limit int) ([]*Message, error)

	// SaveRecommendations inserts all recommendations in a single transaction.
	SaveRecommendations(ctx context.Context, recs []*Recommendation) error

	// GetRecentRecommendations returns up to limit recommendations for the chat,
	// newest first (by insertion order).
	GetRecentRecommendations(ctx context.Context, chatID int64, limit int) ([]*Recommendation, error)

	// PruneRecommendations deletes recommendations created before cutoff and
	// returns the number of rows removed.
	PruneRecommendations(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteChatData deletes all messages and recommendations of one chat atomically.
	DeleteChatData(ctx context.Context, chatID int64) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by sqlx.
func NewStore(db *sqlx.DB, log *slog.Logger) Store {
	if log == nil {
		log = logger.Discard()
	}
	return &sqlxStore{
		db:     db,
		logger: log.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// normalizeTime stores times in UTC at second precision so that the text
// representation SQLite keeps sorts and compares chronologically.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultQueryLimit
	case limit > maxQueryLimit:
		return maxQueryLimit
	default:
		return limit
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// withTx runs fn inside a transaction, rolling back unless fn and the commit succeed.
func (s *sqlxStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return errors.New("cannot save nil message")
	}
	if message.ChatID == 0 {
		return errors.New("message must have a non-zero chat_id")
	}
	if message.UserID == 0 {
		return errors.New("message must have a non-zero user_id")
	}
	if message.Content == "" {
		return errors.New("message must have non-empty content")
	}
	if message.Timestamp.IsZero() {
		return errors.New("message must have a non-zero timestamp")
	}

	now := normalizeTime(time.Now())
	message.CreatedAt = now
	message.UpdatedAt = now
	message.Timestamp = normalizeTime(message.Timestamp)

	query := `
        INSERT INTO messages (chat_id, user_id, username, content, timestamp, created_at, updated_at)
        VALUES (:chat_id, :user_id, :username, :content, :timestamp, :created_at, :updated_at);
    `

	result, err := s.db.NamedExecContext(ctx, query, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "chat_id", message.ChatID, "user_id", message.UserID, "error", err)
		return fmt.Errorf("failed to save message (chat %d, user %d): %w", message.ChatID, message.UserID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // ids are positive autoincrement values
		message.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving message",
			"chat_id", message.ChatID, "error", err)
	}

	s.logger.DebugContext(ctx, "Message saved", "chat_id", message.ChatID, "message_id", message.ID)
	return nil
}

func (s *sqlxStore) GetRecentMessagesInChat(ctx context.Context, chatID int64, limit int) ([]*Message, error) {
	if chatID == 0 {
		return nil, errors.New("chat_id cannot be zero")
	}
	limit = clampLimit(limit)

	var messages []*Message
	query := `
        SELECT id, chat_id, user_id, username, content, timestamp, created_at, updated_at
        FROM messages
        WHERE chat_id = ?
        ORDER BY timestamp DESC, id DESC
        LIMIT ?;
    `

	err := s.db.SelectContext(ctx, &messages, query, chatID, limit)
	if isContextErr(err) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching messages", "chat_id", chatID, "error", err)
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent messages", "chat_id", chatID, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get recent messages for chat %d: %w", chatID, err)
	}

	s.logger.DebugContext(ctx, "Fetched recent messages", "chat_id", chatID, "count", len(messages))
	return messages, nil
}

func (s *sqlxStore) SaveRecommendations(ctx context.Context, recs []*Recommendation) error {
	if len(recs) == 0 {
		return nil
	}

	now := normalizeTime(time.Now())
	for i, rec := range recs {
		if rec == nil {
			return fmt.Errorf("recommendation %d is nil", i)
		}
		if rec.ChatID == 0 {
			return fmt.Errorf("recommendation %d must have a non-zero chat_id", i)
		}
		if strings.TrimSpace(rec.Recommender) == "" {
			return fmt.Errorf("recommendation %d must have a recommender", i)
		}
		if rec.Ticker == "" && rec.ContractAddress == "" {
			return fmt.Errorf("recommendation %d must have a ticker or contract address", i)
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		} else {
			rec.CreatedAt = normalizeTime(rec.CreatedAt)
		}
	}

	query := `
        INSERT INTO recommendations
            (chat_id, message_id, recommender, ticker, contract_address, type, conviction, content, created_at)
        VALUES
            (:chat_id, :message_id, :recommender, :ticker, :contract_address, :type, :conviction, :content, :created_at);
    `

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, rec := range recs {
			result, err := tx.NamedExecContext(ctx, query, rec)
			if err != nil {
				return fmt.Errorf("failed to insert recommendation for %q: %w", rec.Recommender, err)
			}
			if id, err := result.LastInsertId(); err == nil {
				//nolint:gosec // ids are positive autoincrement values
				rec.ID = uint(id)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving recommendations", "count", len(recs), "error", err)
		return err
	}

	s.logger.DebugContext(ctx, "Recommendations saved", "chat_id", recs[0].ChatID, "count", len(recs))
	return nil
}

func (s *sqlxStore) GetRecentRecommendations(ctx context.Context, chatID int64, limit int) ([]*Recommendation, error) {
	if chatID == 0 {
		return nil, errors.New("chat_id cannot be zero")
	}
	limit = clampLimit(limit)

	var recs []*Recommendation
	query := `
        SELECT id, chat_id, message_id, recommender, ticker, contract_address, type, conviction, content, created_at
        FROM recommendations
        WHERE chat_id = ?
        ORDER BY id DESC
        LIMIT ?;
    `

	err := s.db.SelectContext(ctx, &recs, query, chatID, limit)
	if isContextErr(err) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching recommendations", "chat_id", chatID, "error", err)
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent recommendations", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get recent recommendations for chat %d: %w", chatID, err)
	}

	return recs, nil
}

func (s *sqlxStore) PruneRecommendations(ctx context.Context, cutoff time.Time) (int64, error) {
	if cutoff.IsZero() {
		return 0, errors.New("prune cutoff cannot be zero")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM recommendations WHERE created_at < ?`, normalizeTime(cutoff))
	if err != nil {
		s.logger.ErrorContext(ctx, "Error pruning recommendations", "cutoff", cutoff, "error", err)
		return 0, fmt.Errorf("failed to prune recommendations: %w", err)
	}

	deleted, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Pruned old recommendations", "cutoff", cutoff, "deleted", deleted)
	return deleted, nil
}

func (s *sqlxStore) DeleteChatData(ctx context.Context, chatID int64) error {
	if chatID == 0 {
		return errors.New("chat_id cannot be zero")
	}

	var messagesCount, recsCount int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chatID)
		if err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		messagesCount, _ = res.RowsAffected()

		res, err = tx.ExecContext(ctx, `DELETE FROM recommendations WHERE chat_id = ?`, chatID)
		if err != nil {
			return fmt.Errorf("failed to delete recommendations: %w", err)
		}
		recsCount, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error resetting chat data", "chat_id", chatID, "error", err)
		return err
	}

	s.logger.InfoContext(ctx, "Chat data reset",
		"chat_id", chatID,
		"messages_deleted", messagesCount,
		"recommendations_deleted", recsCount)
	return nil
}

// RunSQLMaintenance executes VACUUM, which SQLite requires to run outside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		s.logger.WarnContext(ctx, "Failed to set busy timeout", "error", err)
	}

	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case isContextErr(err):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
