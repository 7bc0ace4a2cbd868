/*
 * Copyright (c) 2026, Beacon HQ (https://github.com/beaconhq).
 *
 * Beacon HQ licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	toml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment variables used to configure beacond
const EnvPrefix = "BEACON_"

// Config holds all configuration for beacond
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Redis     RedisConfig     `koanf:"redis"`
	Hub       HubConfig       `koanf:"hub"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Logging   LoggingConfig   `koanf:"logging"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Client    ClientConfig    `koanf:"client"`
}

// ServerConfig holds HTTP server-related configuration
type ServerConfig struct {
	APIPort int `koanf:"api_port"`

	// ReadTimeout bounds reading a request; bodies are small JSON documents.
	// There is deliberately no write timeout: event streams stay open for
	// the life of the subscriber.
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageConfig holds storage-related configuration
type StorageConfig struct {
	Type     string         `koanf:"type"`     // "sqlite", "postgres", or "memory"
	SQLite   SQLiteConfig   `koanf:"sqlite"`   // SQLite-specific configuration
	Postgres PostgresConfig `koanf:"postgres"` // PostgreSQL-specific configuration

	// HistoryLimit caps retained status rows per entity; 0 keeps everything
	HistoryLimit int `koanf:"history_limit"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `koanf:"path"` // Path to SQLite database file
}

// PostgresConfig holds PostgreSQL-specific configuration
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`
	MaxConns int    `koanf:"max_conns"`
}

// RedisConfig holds the shared Redis connection configuration used by the
// hub and rate limiter backends
type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// HubConfig holds event hub configuration
type HubConfig struct {
	Backend string `koanf:"backend"` // "memory" or "redis"

	// BufferSize is the per-subscriber event buffer; slow subscribers drop
	// events once it fills
	BufferSize int `koanf:"buffer_size"`

	// HeartbeatInterval is the cadence of heartbeat events on entity streams
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`

	// RetryHint is sent to stream subscribers as the SSE retry field; zero
	// omits it
	RetryHint time.Duration `koanf:"retry_hint"`
}

// RateLimitConfig holds API rate limit configuration
type RateLimitConfig struct {
	Enabled bool          `koanf:"enabled"`
	Backend string        `koanf:"backend"` // "memory" or "redis"
	Limit   int           `koanf:"limit"`   // requests per window per client
	Window  time.Duration `koanf:"window"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error"
	Format string `koanf:"format"` // "json" (default) or "console"
}

// MetricsConfig holds Prometheus metrics server configuration
type MetricsConfig struct {
	// Enabled indicates whether the metrics server should be started
	Enabled bool `koanf:"enabled"`

	// Port is the port for the metrics HTTP server
	Port int `koanf:"port"`
}

// ClientConfig holds defaults for status clients built from this
// configuration (used by the bundled watch tooling)
type ClientConfig struct {
	BaseURL              string        `koanf:"base_url"`
	MaxReconnectAttempts int           `koanf:"max_reconnect_attempts"`
	ReconnectDelay       time.Duration `koanf:"reconnect_delay"`
}

// LoadConfig loads configuration from file, environment variables, and defaults
// Priority: Environment variables > Config file > Defaults
func LoadConfig(configPath string) (*Config, error) {
	cfg := defaultConfig()

	k := koanf.New(".")

	// Load config file if path is provided
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Load environment variables with prefix
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)

		// Short names for the variables operators set most often
		switch s {
		case "port":
			return "server.api_port"
		case "log_level":
			return "logging.level"
		case "log_format":
			return "logging.format"
		case "storage_path":
			return "storage.sqlite.path"
		case "redis_address":
			return "redis.address"
		case "redis_password":
			return "redis.password"
		default:
			// For other BEACON_ prefixed vars, use standard mapping (underscore to dot)
			// Step 1: Convert double underscore "__" into a temporary placeholder
			s = strings.ReplaceAll(s, "__", "%UNDERSCORE%")
			// Step 2: Convert single "_" into "."
			s = strings.ReplaceAll(s, "_", ".")
			// Step 3: Convert placeholder back into literal "_"
			s = strings.ReplaceAll(s, "%UNDERSCORE%", "_")
			return s
		}
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Unmarshal into Config struct with DecodeHook for duration strings
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "koanf",
			WeaklyTypedInput: true,
			Result:           cfg,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config struct with default configuration values
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			APIPort:         9290,
			ReadTimeout:     10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path: "./data/beacon.db",
			},
			Postgres: PostgresConfig{
				Host:     "",
				Port:     5432,
				Database: "",
				User:     "beacon",
				Password: "",
				SSLMode:  "disable",
				MaxConns: 4,
			},
			HistoryLimit: 100,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Address:  "localhost:6379",
			Password: "",
			DB:       0,
		},
		Hub: HubConfig{
			Backend:           "memory",
			BufferSize:        16,
			HeartbeatInterval: 15 * time.Second,
			RetryHint:         3 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled: false,
			Backend: "memory",
			Limit:   120,
			Window:  time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9291,
		},
		Client: ClientConfig{
			BaseURL:              "http://localhost:9290",
			MaxReconnectAttempts: 5,
			ReconnectDelay:       time.Second,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate storage type
	validStorageTypes := []string{"sqlite", "postgres", "memory"}
	isValidType := false
	for _, t := range validStorageTypes {
		if c.Storage.Type == t {
			isValidType = true
			break
		}
	}
	if !isValidType {
		return fmt.Errorf("storage.type must be one of: sqlite, postgres, memory, got: %s", c.Storage.Type)
	}

	// Validate SQLite configuration
	if c.Storage.Type == "sqlite" && c.Storage.SQLite.Path == "" {
		return fmt.Errorf("storage.sqlite.path is required when storage.type is 'sqlite'")
	}

	// Validate PostgreSQL configuration
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.Host == "" {
			return fmt.Errorf("storage.postgres.host is required when storage.type is 'postgres'")
		}
		if c.Storage.Postgres.Database == "" {
			return fmt.Errorf("storage.postgres.database is required when storage.type is 'postgres'")
		}
	}

	if c.Storage.HistoryLimit < 0 {
		return fmt.Errorf("storage.history_limit must be zero or positive, got: %d", c.Storage.HistoryLimit)
	}

	// Validate log level
	validLevels := []string{"debug", "info", "warn", "warning", "error"}
	isValidLevel := false
	for _, level := range validLevels {
		if strings.ToLower(c.Logging.Level) == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got: %s", c.Logging.Level)
	}

	// Validate log format
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be either 'json' or 'console', got: %s", c.Logging.Format)
	}

	// Validate ports
	if c.Server.APIPort < 1 || c.Server.APIPort > 65535 {
		return fmt.Errorf("server.api_port must be between 1 and 65535, got: %d", c.Server.APIPort)
	}

	// Validate metrics config
	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be between 1 and 65535, got: %d", c.Metrics.Port)
		}
		if c.Metrics.Port == c.Server.APIPort {
			return fmt.Errorf("metrics.port cannot be same as server.api_port")
		}
	}

	// Validate hub configuration
	if err := c.validateHubConfig(); err != nil {
		return err
	}

	// Validate rate limit configuration
	if err := c.validateRateLimitConfig(); err != nil {
		return err
	}

	// Validate client defaults
	if err := c.validateClientConfig(); err != nil {
		return err
	}

	return nil
}

// validateHubConfig validates the event hub configuration
func (c *Config) validateHubConfig() error {
	if c.Hub.Backend != "memory" && c.Hub.Backend != "redis" {
		return fmt.Errorf("hub.backend must be either 'memory' or 'redis', got: %s", c.Hub.Backend)
	}
	if c.Hub.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("hub.backend 'redis' requires redis.enabled to be true")
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when redis.enabled is true")
	}
	if c.Hub.BufferSize < 1 {
		return fmt.Errorf("hub.buffer_size must be positive, got: %d", c.Hub.BufferSize)
	}
	if c.Hub.HeartbeatInterval <= 0 {
		return fmt.Errorf("hub.heartbeat_interval must be positive, got: %s", c.Hub.HeartbeatInterval)
	}
	if c.Hub.RetryHint < 0 {
		return fmt.Errorf("hub.retry_hint must be zero or positive, got: %s", c.Hub.RetryHint)
	}
	return nil
}

// validateRateLimitConfig validates the rate limit configuration
func (c *Config) validateRateLimitConfig() error {
	if !c.RateLimit.Enabled {
		return nil
	}
	if c.RateLimit.Backend != "memory" && c.RateLimit.Backend != "redis" {
		return fmt.Errorf("ratelimit.backend must be either 'memory' or 'redis', got: %s", c.RateLimit.Backend)
	}
	if c.RateLimit.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("ratelimit.backend 'redis' requires redis.enabled to be true")
	}
	if c.RateLimit.Limit < 1 {
		return fmt.Errorf("ratelimit.limit must be positive, got: %d", c.RateLimit.Limit)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be positive, got: %s", c.RateLimit.Window)
	}
	return nil
}

// validateClientConfig validates the bundled client defaults
func (c *Config) validateClientConfig() error {
	if c.Client.MaxReconnectAttempts < 0 {
		return fmt.Errorf("client.max_reconnect_attempts must be zero or positive, got: %d", c.Client.MaxReconnectAttempts)
	}
	if c.Client.ReconnectDelay < 0 {
		return fmt.Errorf("client.reconnect_delay must be zero or positive, got: %s", c.Client.ReconnectDelay)
	}
	return nil
}

// DSN returns the PostgreSQL connection URL for the pgx driver
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Database,
	}
	if c.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", c.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// IsPersistentMode returns true when writes survive a process restart
func (c *Config) IsPersistentMode() bool {
	return c.Storage.Type == "sqlite" || c.Storage.Type == "postgres"
}

// IsMemoryOnlyMode returns true when storage is in-memory only
func (c *Config) IsMemoryOnlyMode() bool {
	return c.Storage.Type == "memory"
}
