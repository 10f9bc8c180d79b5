package tasks

import (
	"context"
	"fmt"
	"time"
)

const pruneTimeout = 2 * time.Minute

// newRecommendationPruneTask creates a task deleting recommendations older than
// the configured retention. A retention of zero days keeps everything.
func newRecommendationPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", RecommendationPruneTask)

	return func(ctx context.Context) error {
		days := deps.Config.Recommender.RetentionDays
		if days <= 0 {
			log.DebugContext(ctx, "Recommendation retention disabled, nothing to prune")
			return nil
		}

		cutoff := deps.now().UTC().AddDate(0, 0, -days)
		timeoutCtx, cancel := context.WithTimeout(ctx, pruneTimeout)
		defer cancel()

		removed, err := deps.Store.PruneRecommendations(timeoutCtx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Recommendation prune failed", "error", err, "cutoff", cutoff)
			return fmt.Errorf("recommendation prune failed: %w", err)
		}

		log.InfoContext(ctx, "Pruned old recommendations", "removed", removed, "cutoff", cutoff)
		return nil
	}
}
