package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks struct tags and the cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	for name, task := range c.Scheduler.Tasks {
		if !task.Enabled {
			continue
		}
		// gocron is started with seconds enabled, so schedules need 6 fields.
		if n := len(strings.Fields(task.Schedule)); n != 6 {
			return fmt.Errorf("scheduler task %q: schedule %q must have 6 fields, got %d", name, task.Schedule, n)
		}
	}

	if c.Recommender.WindowSize > c.Database.MaxHistoryMessages {
		return fmt.Errorf("recommender.window_size (%d) exceeds database.max_history_messages (%d)",
			c.Recommender.WindowSize, c.Database.MaxHistoryMessages)
	}

	return nil
}

// IsAdmin reports whether userID is the configured administrator.
func (c *Config) IsAdmin(userID int64) bool {
	return userID != 0 && userID == c.Telegram.AdminUserID
}
