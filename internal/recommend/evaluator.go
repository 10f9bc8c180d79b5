package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/edgard/callwatch/internal/database"
	"github.com/edgard/callwatch/internal/logger"
)

const (
	// DefaultHistoryLimit bounds how many known recommendations are fed back into extraction.
	DefaultHistoryLimit = 20

	// MinMessageLength is the shortest message text, in runes, worth evaluating.
	MinMessageLength = 5
)

// MemoryStore reads previously recorded recommendations.
//
// GetRecentRecommendations MUST return the newest recommendation first.
// FormatHistory reverses that order to build a chronological narrative; a
// store returning oldest first would silently feed the backend a
// reverse-chronological history.
type MemoryStore interface {
	GetRecentRecommendations(ctx context.Context, chatID int64, limit int) ([]*database.Recommendation, error)
}

// Options configures an Evaluator.
type Options struct {
	// AgentID is the bot's own user ID; its messages are never evaluated.
	AgentID int64
	// AgentName is how the bot appears in prompts.
	AgentName string
	// IncompatibleStorage skips evaluation entirely. It is an escape hatch for
	// storage backends the recommendation queries do not support yet.
	IncompatibleStorage bool
	// HistoryLimit bounds the known recommendations loaded per run.
	HistoryLimit int
	// Examples overrides the bundled few-shot examples.
	Examples []Example
}

// Evaluator runs the recommendation pipeline for a single message:
// eligibility, gating, extraction with known history, then validation.
// It keeps no state between calls and is safe for concurrent use.
type Evaluator struct {
	store     MemoryStore
	composer  Composer
	gate      *Gate
	extractor *Extractor
	opts      Options
	logger    *slog.Logger
}

// NewEvaluator wires an Evaluator from its collaborators.
func NewEvaluator(store MemoryStore, composer Composer, backend Backend, opts Options, log *slog.Logger) (*Evaluator, error) {
	if store == nil {
		return nil, errors.New("recommend: memory store must not be nil")
	}
	if composer == nil {
		return nil, errors.New("recommend: composer must not be nil")
	}
	if backend == nil {
		return nil, errors.New("recommend: backend must not be nil")
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if log == nil {
		log = logger.Discard()
	}
	log = log.With("component", "recommend_evaluator")

	return &Evaluator{
		store:     store,
		composer:  composer,
		gate:      NewGate(backend),
		extractor: NewExtractor(backend, opts.Examples, log),
		opts:      opts,
		logger:    log,
	}, nil
}

// IsApplicable reports whether msg is long enough and not written by the agent.
// Callers may use it to skip Evaluate entirely.
func (e *Evaluator) IsApplicable(msg *database.Message) bool {
	if msg == nil {
		return false
	}
	return utf8.RuneCountInString(msg.Content) >= MinMessageLength && msg.UserID != e.opts.AgentID
}

// Evaluate returns the new, valid recommendations found in the conversation
// around msg. It returns an empty list when the message is not applicable,
// when storage is flagged incompatible, or when the gate says no. Only
// failures of the store or the backend are returned as errors.
func (e *Evaluator) Evaluate(ctx context.Context, msg *database.Message) ([]Recommendation, error) {
	if !e.IsApplicable(msg) {
		return []Recommendation{}, nil
	}
	log := e.logger.With("chat_id", msg.ChatID, "message_id", msg.ID)

	if e.opts.IncompatibleStorage {
		log.InfoContext(ctx, "Skipping recommendation evaluation: storage backend is flagged incompatible")
		return []Recommendation{}, nil
	}

	startTime := time.Now()

	state, err := e.composer.Compose(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to compose conversation state: %w", err)
	}

	process, err := e.gate.ShouldProcess(ctx, state)
	if err != nil {
		return nil, err
	}
	if !process {
		log.DebugContext(ctx, "Gate rejected conversation window", "duration", time.Since(startTime))
		return []Recommendation{}, nil
	}

	known, err := e.store.GetRecentRecommendations(ctx, msg.ChatID, e.opts.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load known recommendations: %w", err)
	}
	history := FormatHistory(known)
	state.KnownRecommendations = history

	candidates, err := e.extractor.Extract(ctx, state, history)
	if err != nil {
		return nil, err
	}

	recs, rejected := FilterWithReasons(candidates)
	for _, r := range rejected {
		log.DebugContext(ctx, "Dropped candidate", "index", r.Index, "reason", r.Reason)
	}

	log.DebugContext(ctx, "Recommendation evaluation finished",
		"known", len(known),
		"candidates", len(candidates),
		"accepted", len(recs),
		"duration", time.Since(startTime))
	return recs, nil
}
