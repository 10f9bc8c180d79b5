package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/callwatch/internal/database"
	"github.com/edgard/callwatch/internal/recommend"
)

const (
	dbSaveTimeout     = 5 * time.Second
	maxSaveRetries    = 3
	saveRetryInterval = 500 * time.Millisecond
)

// NewRecommendationHandler returns the default handler: it records every text
// message and runs the recommendation pipeline on it. deps is read on every
// update, so the Evaluator may be attached after the handler is created.
func NewRecommendationHandler(deps *HandlerDeps) bot.HandlerFunc {
	return (&recommendationHandler{deps: deps}).Handle
}

type recommendationHandler struct {
	deps *HandlerDeps
}

func (h *recommendationHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := toDatabaseMessage(update)
	if msg == nil {
		return
	}

	SaveMessageWithRetry(ctx, *h.deps, msg)
	h.evaluate(ctx, msg)
}

// toDatabaseMessage converts a text or captioned message update; other updates yield nil.
func toDatabaseMessage(update *models.Update) *database.Message {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return nil
	}
	m := update.Message

	text := m.Text
	if text == "" {
		text = m.Caption
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	ts := time.Now().UTC()
	if m.Date > 0 {
		ts = time.Unix(int64(m.Date), 0).UTC()
	}

	return &database.Message{
		ChatID:    m.Chat.ID,
		UserID:    m.From.ID,
		Username:  displayName(m.From),
		Content:   text,
		Timestamp: ts,
	}
}

func displayName(u *models.User) string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// evaluate runs the pipeline for msg and persists what it finds. It returns
// the number of recommendations stored.
func (h *recommendationHandler) evaluate(ctx context.Context, msg *database.Message) int {
	deps := *h.deps
	log := deps.Logger.With("handler", "recommendation", "chat_id", msg.ChatID, "message_id", msg.ID)

	if deps.Evaluator == nil {
		log.DebugContext(ctx, "No evaluator attached yet, skipping recommendation check")
		return 0
	}
	if !deps.Evaluator.IsApplicable(msg) {
		return 0
	}

	if deps.Semaphore != nil {
		if err := deps.Semaphore.Acquire(ctx, 1); err != nil {
			log.WarnContext(ctx, "Gave up waiting for an evaluation slot", "error", err)
			return 0
		}
		defer deps.Semaphore.Release(1)
	}

	evalCtx, cancel := context.WithTimeout(ctx, deps.Config.Recommender.Timeout)
	defer cancel()

	recs, err := deps.Evaluator.Evaluate(evalCtx, msg)
	if err != nil {
		if errors.Is(err, recommend.ErrBackend) {
			log.WarnContext(ctx, "Recommendation evaluation failed in generative backend", "error", err)
		} else {
			log.ErrorContext(ctx, "Recommendation evaluation failed", "error", err)
		}
		return 0
	}
	if len(recs) == 0 {
		return 0
	}

	rows := make([]*database.Recommendation, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, rec.Record(msg.ChatID, msg.ID))
		log.DebugContext(ctx, "Found recommendation", "content", rec.Describe())
	}

	saveCtx, cancelSave := context.WithTimeout(ctx, dbSaveTimeout)
	defer cancelSave()
	if err := deps.Store.SaveRecommendations(saveCtx, rows); err != nil {
		log.ErrorContext(ctx, "Failed to save recommendations", "error", err, "count", len(rows))
		return 0
	}

	log.InfoContext(ctx, "Recorded recommendations", "count", len(rows))
	return len(rows)
}

// SaveMessageWithRetry attempts to save a message, retrying transient failures.
func SaveMessageWithRetry(ctx context.Context, deps HandlerDeps, msg *database.Message) {
	log := deps.Logger.With("handler", "recommendation")
	var err error

	for i := range maxSaveRetries {
		if ctx.Err() != nil {
			log.WarnContext(ctx, "Context cancelled, aborting message save attempts",
				"error", ctx.Err(), "chat_id", msg.ChatID, "attempt", i+1)
			return
		}

		dbCtx, cancel := context.WithTimeout(ctx, dbSaveTimeout)
		err = deps.Store.SaveMessage(dbCtx, msg)
		cancel()

		if err == nil {
			log.DebugContext(ctx, "Message saved", "db_message_id", msg.ID, "chat_id", msg.ChatID)
			return
		}

		log.ErrorContext(ctx, "Failed to save message, retrying", "error", err, "chat_id", msg.ChatID, "attempt", i+1)
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(i+1) * saveRetryInterval):
		}
	}

	log.ErrorContext(ctx, "Failed to save message after retries", "retries", maxSaveRetries, "error", err, "chat_id", msg.ChatID)
}
