package handlers

import (
	"context"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/edgard/callwatch/internal/config"
	"github.com/edgard/callwatch/internal/database"
	"github.com/edgard/callwatch/internal/recommend"
)

// Evaluator is the part of the recommendation pipeline the handlers drive.
type Evaluator interface {
	IsApplicable(msg *database.Message) bool
	Evaluate(ctx context.Context, msg *database.Message) ([]recommend.Recommendation, error)
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  database.Store
	// Evaluator may be nil until the bot identity is known; messages are
	// still recorded meanwhile.
	Evaluator Evaluator
	// Semaphore bounds concurrent evaluations.
	Semaphore *semaphore.Weighted
}
