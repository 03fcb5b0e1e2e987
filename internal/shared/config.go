package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Selected fields can be overridden through CADENCE_* environment variables.
type Config struct {
	API           APIConfig           `toml:"api"`
	Database      DatabaseConfig      `toml:"database"`
	Notifications NotificationsConfig `toml:"notifications"`
	Library       LibraryConfig       `toml:"library"`
	Log           LogConfig           `toml:"log"`
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	BaseURL   string        `toml:"base_url" env:"CADENCE_API_BASE_URL"`
	Token     string        `toml:"token" env:"CADENCE_API_TOKEN"`
	Timeout   time.Duration `toml:"timeout" env:"CADENCE_API_TIMEOUT"`
	RateLimit float64       `toml:"rate_limit"`
	Burst     int           `toml:"burst"`
}

// DatabaseConfig contains local state database settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"CADENCE_DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// NotificationsConfig tunes the notification manager.
type NotificationsConfig struct {
	PageSize     int           `toml:"page_size"`
	PollInterval time.Duration `toml:"poll_interval" env:"CADENCE_POLL_INTERVAL"`
	Debounce     time.Duration `toml:"debounce"`
	SettleDelay  time.Duration `toml:"settle_delay"`
}

// LibraryConfig tunes catalog browsing.
type LibraryConfig struct {
	PageSize int `toml:"page_size"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level" env:"CADENCE_LOG_LEVEL"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path, then applies environment overrides.
//
// Keys missing from the file keep their defaults from the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides config fields from CADENCE_* environment variables.
func ApplyEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("%w: environment: %v", ErrInvalidConfig, err)
	}
	return nil
}

// EnvConfig returns the defaults with CADENCE_* overrides applied, validated the same way
// [LoadConfig] validates a file.
func EnvConfig() (*Config, error) {
	config := DefaultConfig()
	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.API.BaseURL == "":
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	case c.Notifications.PageSize <= 0:
		return fmt.Errorf("%w: notifications.page_size must be positive", ErrInvalidConfig)
	case c.Library.PageSize <= 0:
		return fmt.Errorf("%w: library.page_size must be positive", ErrInvalidConfig)
	case c.Notifications.PollInterval <= 0:
		return fmt.Errorf("%w: notifications.poll_interval must be positive", ErrInvalidConfig)
	case c.Notifications.Debounce < 0 || c.Notifications.SettleDelay < 0:
		return fmt.Errorf("%w: notification delays cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
