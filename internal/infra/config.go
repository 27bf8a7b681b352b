package infra

import (
	"errors"
	"fmt"
	"os"
	"time"

	"order_gateway/internal/domain"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the gateway.
// LoadConfig reads the YAML file first, then lets GATEWAY_* environment
// variables (optionally from a .env file) override individual fields.
type Config struct {
	App struct {
		Name    string `yaml:"name" env:"APP_NAME"`
		Version string `yaml:"version" env:"APP_VERSION"`
	} `yaml:"app" envPrefix:"GATEWAY_"`

	Server struct {
		Addr           string   `yaml:"addr" env:"SERVER_ADDR"`
		AllowedOrigins []string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS" envSeparator:","`
	} `yaml:"server" envPrefix:"GATEWAY_"`

	Database struct {
		// ReferencePath is the externally owned database holding the symbol,
		// pending_order and order_history tables.
		ReferencePath string `yaml:"reference_path" env:"DATABASE_REFERENCE_PATH"`
		// StatePath is the gateway's own database (client order sequence).
		StatePath string `yaml:"state_path" env:"DATABASE_STATE_PATH"`
	} `yaml:"database" envPrefix:"GATEWAY_"`

	MessageLog struct {
		Path        string `yaml:"path" env:"MESSAGE_LOG_PATH"`
		MaxAttempts int    `yaml:"max_attempts" env:"MESSAGE_LOG_MAX_ATTEMPTS"`
		RetryBaseMS int    `yaml:"retry_base_ms" env:"MESSAGE_LOG_RETRY_BASE_MS"`
	} `yaml:"message_log" envPrefix:"GATEWAY_"`

	Sequencer struct {
		InboxSize int `yaml:"inbox_size" env:"SEQUENCER_INBOX_SIZE"`
	} `yaml:"sequencer" envPrefix:"GATEWAY_"`

	Logging struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
		Dir   string `yaml:"dir" env:"LOG_DIR"`
	} `yaml:"logging" envPrefix:"GATEWAY_"`
}

// DefaultConfig returns the settings used when a field is left empty.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "order-gateway"
	cfg.App.Version = "dev"
	cfg.Server.Addr = "localhost:8080"
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Database.ReferencePath = "database.db"
	cfg.Database.StatePath = "data/gateway.db"
	cfg.MessageLog.Path = "order.csv"
	cfg.MessageLog.MaxAttempts = 3
	cfg.MessageLog.RetryBaseMS = 50
	cfg.Sequencer.InboxSize = 256
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return &cfg
}

// LoadConfig reads the configuration file and applies environment overrides.
// A missing file is not an error: defaults plus environment are used.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, err
	}

	// .env is optional
	_ = godotenv.Load()

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// overrideWithEnv replaces fields whose GATEWAY_* variable is set.
// Unset variables leave the YAML value alone.
func overrideWithEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return &domain.ConfigError{Field: "env", Err: err}
	}
	return nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Database.ReferencePath == "" {
		return &domain.ConfigError{Field: "database.reference_path", Err: errors.New("must not be empty")}
	}
	if c.Database.StatePath == "" {
		return &domain.ConfigError{Field: "database.state_path", Err: errors.New("must not be empty")}
	}
	if c.Database.StatePath == c.Database.ReferencePath {
		return &domain.ConfigError{Field: "database.state_path", Err: errors.New("must differ from reference_path")}
	}
	if c.MessageLog.Path == "" {
		return &domain.ConfigError{Field: "message_log.path", Err: errors.New("must not be empty")}
	}
	if c.MessageLog.MaxAttempts < 1 {
		return &domain.ConfigError{Field: "message_log.max_attempts", Err: errors.New("must be at least 1")}
	}
	if c.MessageLog.RetryBaseMS < 0 {
		return &domain.ConfigError{Field: "message_log.retry_base_ms", Err: errors.New("must not be negative")}
	}
	if c.Sequencer.InboxSize < 1 {
		return &domain.ConfigError{Field: "sequencer.inbox_size", Err: errors.New("must be positive")}
	}
	if c.Server.Addr == "" {
		return &domain.ConfigError{Field: "server.addr", Err: errors.New("must not be empty")}
	}
	return nil
}

// RetryBase returns the first backoff delay of the message log writer.
func (c *Config) RetryBase() time.Duration {
	return time.Duration(c.MessageLog.RetryBaseMS) * time.Millisecond
}
