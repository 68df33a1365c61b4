package config

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the parsed-osrs pipeline.
type Config struct {
	// DiscordUsername identifies the operator in the wiki's required
	// User-Agent header. The crawl client refuses to start without it.
	DiscordUsername string
	DBPath          string
	DataDir         string
	WikiDir         string
	LogLevel        string
	SentryDSN       string
	Environment     string
	// RequestDelay is the minimum interval between wiki API requests.
	RequestDelay time.Duration
}

const (
	defaultDBPath       = "./data/parsed-osrs.db"
	defaultDataDir      = "./data"
	defaultWikiDir      = "./wiki-data"
	defaultLogLevel     = "info"
	defaultRequestDelay = time.Second
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DiscordUsername: os.Getenv("DISCORD_USERNAME"),
		DBPath:          getEnv("DB_PATH", defaultDBPath),
		DataDir:         getEnv("DATA_FOLDER_PATH", defaultDataDir),
		WikiDir:         getEnv("WIKI_FOLDER_PATH", defaultWikiDir),
		LogLevel:        getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:       os.Getenv("SENTRY_DSN"),
		Environment:     os.Getenv("ENV"),
		RequestDelay:    defaultRequestDelay,
	}

	if raw := os.Getenv("REQUEST_DELAY"); raw != "" {
		delay, err := time.ParseDuration(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid REQUEST_DELAY value: %s", raw)
		}
		if delay <= 0 {
			return nil, eris.Errorf("REQUEST_DELAY must be positive, got %s", raw)
		}
		cfg.RequestDelay = delay
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
