package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration
const (
	DefaultLogLevel = "info"

	DefaultGeminiModel      = "gemini-2.0-flash"
	DefaultGeminiTemp       = 0.2
	DefaultGeminiRetries    = 2
	DefaultGeminiRetryDelay = 2

	DefaultDBPath             = "storage.db"
	DefaultMaxHistoryMessages = 50

	DefaultRecommenderHistoryLimit  = 20
	DefaultRecommenderWindowSize    = 20
	DefaultRecommenderWindowTokens  = 6000
	DefaultRecommenderMaxConcurrent = 4
	DefaultRecommenderTimeout       = 2 * time.Minute
	DefaultRecommenderRetentionDays = 90

	DefaultSQLMaintenanceSchedule = "0 0 3 * * *"
	DefaultPruneSchedule          = "0 30 3 * * *"
)

// DefaultMessages are the bot replies used when the config file omits them.
var DefaultMessages = MessagesConfig{
	Welcome:               "👋 I'm watching this chat for token calls. Use /recs to see what has been recommended.",
	Help:                  "I record buy/sell calls made in this chat.\n/recs - latest recommendations\n/reset - clear this chat's data (admin only)",
	GeneralError:          "❌ An error occurred. Please try again later.",
	Unauthorized:          "🚫 You are not authorized to use this command.",
	NoRecommendations:     "No recommendations recorded in this chat yet.",
	RecommendationsHeader: "Latest recommendations:\n\n",
	ResetConfirm:          "🔄 Chat data has been cleared.",
	ResetError:            "❌ Failed to clear chat data.",
	ResetTimeout:          "⏱️ Reset timed out. Please try again later.",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("gemini.model_name", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemp)
	v.SetDefault("gemini.max_retries", DefaultGeminiRetries)
	v.SetDefault("gemini.retry_delay_seconds", DefaultGeminiRetryDelay)

	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("database.max_history_messages", DefaultMaxHistoryMessages)

	v.SetDefault("recommender.incompatible_storage", false)
	v.SetDefault("recommender.history_limit", DefaultRecommenderHistoryLimit)
	v.SetDefault("recommender.window_size", DefaultRecommenderWindowSize)
	v.SetDefault("recommender.window_tokens", DefaultRecommenderWindowTokens)
	v.SetDefault("recommender.max_concurrent", DefaultRecommenderMaxConcurrent)
	v.SetDefault("recommender.timeout", DefaultRecommenderTimeout)
	v.SetDefault("recommender.retention_days", DefaultRecommenderRetentionDays)

	v.SetDefault("scheduler.tasks", map[string]any{
		"sql_maintenance":      map[string]any{"enabled": true, "schedule": DefaultSQLMaintenanceSchedule},
		"recommendation_prune": map[string]any{"enabled": true, "schedule": DefaultPruneSchedule},
	})

	v.SetDefault("messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("messages.help", DefaultMessages.Help)
	v.SetDefault("messages.general_error", DefaultMessages.GeneralError)
	v.SetDefault("messages.unauthorized", DefaultMessages.Unauthorized)
	v.SetDefault("messages.no_recommendations", DefaultMessages.NoRecommendations)
	v.SetDefault("messages.recommendations_header", DefaultMessages.RecommendationsHeader)
	v.SetDefault("messages.reset_confirm", DefaultMessages.ResetConfirm)
	v.SetDefault("messages.reset_error", DefaultMessages.ResetError)
	v.SetDefault("messages.reset_timeout", DefaultMessages.ResetTimeout)
}
