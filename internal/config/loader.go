package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. CALLWATCH_TELEGRAM_TOKEN sets telegram.token.
const EnvPrefix = "CALLWATCH"

// ErrConfiguration wraps every error returned by LoadConfig.
var ErrConfiguration = errors.New("configuration error")

// keys without defaults are only visible to viper through env vars when bound explicitly.
var boundEnvKeys = []string{
	"telegram.token",
	"telegram.admin_user_id",
	"gemini.api_key",
	"gemini.base_url",
}

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. the YAML file at path (optional)
// 3. CALLWATCH_* environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundEnvKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("%w: failed to bind env for %s: %w", ErrConfiguration, key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: failed to read config file %s: %w", ErrConfiguration, path, err)
			}
			slog.Info("Configuration file not found, using defaults and environment", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	slog.Debug("Configuration loaded",
		"path", path,
		"log_level", cfg.Logger.Level,
		"model", cfg.Gemini.ModelName,
		"db_path", cfg.Database.Path,
		"incompatible_storage", cfg.Recommender.IncompatibleStorage)

	return cfg, nil
}
