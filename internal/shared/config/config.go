package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv        string
	LogLevel      string
	EncryptionKey string
	Bus           BusConfig
	HTTP          HTTPConfig
	Postgres      PostgresConfig
	Telegram      TelegramConfig
}

// BusConfig tunes the event bus loop.
type BusConfig struct {
	BusyPoll bool
}

// HTTPConfig holds the ingress listener settings.
type HTTPConfig struct {
	ListenAddr string
}

// PostgresConfig holds the journal database settings. An empty URL
// disables the journal.
type PostgresConfig struct {
	URL string
}

// TelegramConfig holds the notifier settings. An empty token disables it.
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// JournalEnabled reports whether delivered events are persisted.
func (c *Config) JournalEnabled() bool {
	return c.Postgres.URL != ""
}

// NotifierEnabled reports whether delivered events are posted to Telegram.
func (c *Config) NotifierEnabled() bool {
	return c.Telegram.Token != ""
}

// bindings maps viper keys to the environment variables that feed them.
var bindings = map[string]string{
	"app.env":          "APP_ENV",
	"log.level":        "LOG_LEVEL",
	"encryption.key":   "ENCRYPTION_KEY",
	"bus.busy_poll":    "BUS_BUSY_POLL",
	"http.listen_addr": "HTTP_LISTEN_ADDR",
	"postgres.url":     "DATABASE_URL",
	"telegram.token":   "TELEGRAM_TOKEN",
	"telegram.chat_id": "TELEGRAM_CHAT_ID",
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {

	// 1. Load .env file into the process environment.
	// A missing file is fine; OS-set env vars are used instead.
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()

	// 2. Explicitly bind viper keys to env var names
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	// 3. Set defaults
	v.SetDefault("app.env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("bus.busy_poll", false)
	v.SetDefault("http.listen_addr", "127.0.0.1:8080")

	// 4. Get values
	cfg := Config{
		AppEnv:        v.GetString("app.env"),
		LogLevel:      v.GetString("log.level"),
		EncryptionKey: v.GetString("encryption.key"),
		Bus: BusConfig{
			BusyPoll: v.GetBool("bus.busy_poll"),
		},
		HTTP: HTTPConfig{
			ListenAddr: v.GetString("http.listen_addr"),
		},
		Postgres: PostgresConfig{
			URL: v.GetString("postgres.url"),
		},
		Telegram: TelegramConfig{
			Token:  v.GetString("telegram.token"),
			ChatID: v.GetInt64("telegram.chat_id"),
		},
	}

	// 5. Validation
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.ListenAddr == "" {
		return errors.New("HTTP_LISTEN_ADDR must not be empty")
	}

	if c.JournalEnabled() {
		if c.EncryptionKey == "" {
			return errors.New("ENCRYPTION_KEY is required when DATABASE_URL is set")
		}
		if len(c.EncryptionKey) != 64 {
			return fmt.Errorf("ENCRYPTION_KEY must be a 64-character hex string (32 bytes), but got %d chars", len(c.EncryptionKey))
		}
		if _, err := hex.DecodeString(c.EncryptionKey); err != nil {
			return fmt.Errorf("ENCRYPTION_KEY is not valid hex: %w", err)
		}
	}

	if c.NotifierEnabled() && c.Telegram.ChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	return nil
}
