// Package tasks implements the scheduled maintenance tasks of the bot.
package tasks

import (
	"log/slog"
	"time"

	"github.com/edgard/callwatch/internal/config"
	"github.com/edgard/callwatch/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

func (d TaskDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
