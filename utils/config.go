package utils

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds process configuration sourced from the environment. Only
// BOT_TOKEN is required: the snapshot mirror, image feature and Redis cache
// each degrade gracefully when their settings are absent, so the token
// economy always starts.
type Config struct {
	BotToken           string `envconfig:"BOT_TOKEN" required:"true"`
	OwnerID            int64  `envconfig:"OWNER_ID"`
	DatabaseURL        string `envconfig:"DATABASE_URL"`
	RedisURL           string `envconfig:"REDIS_URL"`
	DriveAPIKey        string `envconfig:"DRIVE_API_KEY"`
	DailyImageFolderID string `envconfig:"DAILY_IMAGE_FOLDER_ID"`
	PrefsPath          string `envconfig:"PREFS_PATH" default:"kringbot_prefs.json"`
	Port               string `envconfig:"PORT" default:"8080"`
}

// BotConfig is the loaded process configuration, set once in main.
var BotConfig *Config

// LoadConfig reads .env when present and parses the environment.
func LoadConfig() (*Config, error) {
	godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	BotConfig = &cfg
	return &cfg, nil
}

// IsOwner reports whether the given user is the configured bot owner.
func IsOwner(userID int64) bool {
	return BotConfig != nil && BotConfig.OwnerID != 0 && BotConfig.OwnerID == userID
}
