package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Game    GameConfig
	Storage StorageConfig
	Submit  SubmitConfig
	Locale  LocaleConfig
	Logging LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Env  string `env:"ENV" envDefault:"development"` // "development" or "production"
}

// GameConfig holds the behaviour switches of a playthrough
type GameConfig struct {
	RequireMinimumSelection bool          `env:"REQUIRE_MIN_SELECTION" envDefault:"true"`
	HasSummaryContinueStep  bool          `env:"SUMMARY_CONTINUE_STEP" envDefault:"true"`
	TopWords                int           `env:"TOP_WORDS" envDefault:"5"`
	InactivityTimeout       time.Duration `env:"INACTIVITY_TIMEOUT" envDefault:"2m"` // 0 disables
}

// StorageConfig selects where word tallies live
type StorageConfig struct {
	Backend    string `env:"STORE_BACKEND" envDefault:"json"` // "json" or "sqlite"
	ScoresDir  string `env:"SCORES_DIR" envDefault:"./data/WordScores"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"./data/scores.db"`
}

// SubmitConfig holds outbound result delivery configuration
type SubmitConfig struct {
	ServerConfigPath string        `env:"SERVER_CONFIG_PATH" envDefault:"./data/serverconfig.json"`
	GameID           int           `env:"GAME_ID" envDefault:"3"`
	Timeout          time.Duration `env:"SUBMIT_TIMEOUT" envDefault:"10s"`
}

// LocaleConfig holds localization configuration
type LocaleConfig struct {
	LanguagePath    string `env:"LANGUAGE_PATH" envDefault:"./data/language.json"`
	DefaultLanguage string `env:"DEFAULT_LANG" envDefault:"pt-BR"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case StoreBackendJSON, StoreBackendSQLite:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Storage.Backend)
	}
	if c.Submit.Timeout <= 0 {
		return fmt.Errorf("SUBMIT_TIMEOUT must be positive")
	}
	if c.Game.InactivityTimeout < 0 {
		return fmt.Errorf("INACTIVITY_TIMEOUT cannot be negative")
	}
	if c.Game.TopWords < 0 {
		return fmt.Errorf("TOP_WORDS cannot be negative")
	}
	return nil
}

// Store backends
const (
	StoreBackendJSON   = "json"
	StoreBackendSQLite = "sqlite"
)

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}
