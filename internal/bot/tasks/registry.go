package tasks

import (
	"context"
)

// ScheduledTaskFunc is the signature of every scheduled task.
// The context provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// Task names, matching the keys of the scheduler.tasks config section.
const (
	SQLMaintenanceTask      = "sql_maintenance"
	RecommendationPruneTask = "recommendation_prune"
)

// RegisterAllTasks returns every scheduled task keyed by its config name.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := make(map[string]ScheduledTaskFunc)

	tasks[SQLMaintenanceTask] = newSQLMaintenanceTask(deps)
	tasks[RecommendationPruneTask] = newRecommendationPruneTask(deps)

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
