// Package config manages application configuration loaded from a YAML file,
// CALLWATCH_* environment variables and built-in defaults.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config is the root configuration for the application.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Recommender RecommenderConfig `mapstructure:"recommender"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Messages    MessagesConfig    `mapstructure:"messages"`
}

// LoggerConfig controls log verbosity and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot credentials and the admin identity.
type TelegramConfig struct {
	Token       string `mapstructure:"token"         validate:"required"`
	AdminUserID int64  `mapstructure:"admin_user_id" validate:"required,gt=0"`

	// BotInfo is filled at runtime from GetMe and is never read from the file.
	BotInfo models.User `mapstructure:"-" validate:"-"`
}

// GeminiConfig configures the generative backend.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"             validate:"required"`
	ModelName         string  `mapstructure:"model_name"          validate:"required"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=0,max=60"`
	// BaseURL overrides the API endpoint, e.g. for a proxy.
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path               string `mapstructure:"path"                 validate:"required"`
	MaxHistoryMessages int    `mapstructure:"max_history_messages" validate:"min=1,max=100"`
}

// RecommenderConfig tunes the recommendation extraction pipeline.
type RecommenderConfig struct {
	// IncompatibleStorage disables extraction entirely. It exists for storage
	// backends whose recommendation queries are not supported yet.
	IncompatibleStorage bool          `mapstructure:"incompatible_storage"`
	HistoryLimit        int           `mapstructure:"history_limit"  validate:"min=1,max=100"`
	WindowSize          int           `mapstructure:"window_size"    validate:"min=1,max=100"`
	WindowTokens        int           `mapstructure:"window_tokens"  validate:"min=0"`
	MaxConcurrent       int64         `mapstructure:"max_concurrent" validate:"min=1,max=64"`
	Timeout             time.Duration `mapstructure:"timeout"        validate:"min=1s,max=10m"`
	RetentionDays       int           `mapstructure:"retention_days" validate:"min=0"`
}

// SchedulerConfig lists scheduled tasks keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds user-facing bot replies.
type MessagesConfig struct {
	Welcome               string `mapstructure:"welcome"                validate:"required"`
	Help                  string `mapstructure:"help"                   validate:"required"`
	GeneralError          string `mapstructure:"general_error"          validate:"required"`
	Unauthorized          string `mapstructure:"unauthorized"           validate:"required"`
	NoRecommendations     string `mapstructure:"no_recommendations"     validate:"required"`
	RecommendationsHeader string `mapstructure:"recommendations_header" validate:"required"`
	ResetConfirm          string `mapstructure:"reset_confirm"          validate:"required"`
	ResetError            string `mapstructure:"reset_error"            validate:"required"`
	ResetTimeout          string `mapstructure:"reset_timeout"          validate:"required"`
}
