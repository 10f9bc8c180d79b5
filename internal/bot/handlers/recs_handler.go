package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/callwatch/internal/database"
)

const (
	recsListLimit = 10
	dbReadTimeout = 5 * time.Second
)

// NewRecsHandler returns a handler for the /recs command.
func NewRecsHandler(deps HandlerDeps) bot.HandlerFunc {
	return recsHandler{deps}.Handle
}

type recsHandler struct {
	deps HandlerDeps
}

func (h recsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "recs")

	if update.Message == nil {
		log.WarnContext(ctx, "Recs handler received update with nil message", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID

	dbCtx, cancel := context.WithTimeout(ctx, dbReadTimeout)
	recs, err := h.deps.Store.GetRecentRecommendations(dbCtx, chatID, recsListLimit)
	cancel()

	var reply string
	if err != nil {
		log.ErrorContext(ctx, "Failed to load recommendations", "error", err, "chat_id", chatID)
		reply = h.deps.Config.Messages.GeneralError
	} else {
		reply = h.formatList(recs)
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: reply}); err != nil {
		log.ErrorContext(ctx, "Failed to send recommendations", "error", err, "chat_id", chatID)
	}
}

// formatList renders recs, newest first, under the configured header.
func (h recsHandler) formatList(recs []*database.Recommendation) string {
	if len(recs) == 0 {
		return h.deps.Config.Messages.NoRecommendations
	}

	var sb strings.Builder
	sb.WriteString(h.deps.Config.Messages.RecommendationsHeader)
	for _, r := range recs {
		sb.WriteString("• ")
		sb.WriteString(r.CreatedAt.UTC().Format("2006-01-02 15:04"))
		sb.WriteString(" ")
		sb.WriteString(r.Content)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
