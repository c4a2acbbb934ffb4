package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort     = 8080
	DefaultLogLevel     = "info"
	DefaultBackend      = "memory"
	DefaultTable        = "tasks"
	DefaultTableEnv     = "TABLE_NAME"
	DefaultURLEnv       = "TASKS_STORE_URL"
	DefaultFeedInterval = 5 * time.Second
	DefaultFeedPageSize = 50
	DefaultMetricsPath  = "/metrics"
)

// FeedPath is where the server mounts the WebSocket task feed.
const FeedPath = "/ws/tasks"

// Supported store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendNATS     = "nats"
	BackendDynamoDB = "dynamodb"
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the task API, metrics and feed listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// LogLevel is one of: debug | info | warn | error. Reloaded on change.
	LogLevel string `yaml:"log_level"`

	// Store selects and locates the task store backend.
	Store StoreConfig `yaml:"store"`

	// Feed controls the WebSocket task feed.
	Feed FeedConfig `yaml:"feed"`

	// Metrics controls the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// StoreConfig identifies the task store. It is read once at startup; the
// store handle is never rebuilt on reload.
type StoreConfig struct {
	// Backend is one of: memory | redis | postgres | nats | dynamodb.
	Backend string `yaml:"backend"`

	// Table is the table (postgres, dynamodb), bucket (nats) or key prefix (redis).
	Table string `yaml:"table"`

	// TableEnv names an environment variable that overrides Table when set.
	TableEnv string `yaml:"table_env"`

	// URLEnv is the name of the environment variable that holds the backend
	// URL or DSN. DynamoDB uses it as an optional endpoint override.
	URLEnv string `yaml:"url_env"`
}

// EffectiveTable returns the table name from TableEnv if that variable is
// set, otherwise Table.
func (s StoreConfig) EffectiveTable() string {
	if s.TableEnv != "" {
		if v := os.Getenv(s.TableEnv); v != "" {
			return v
		}
	}
	return s.Table
}

// URL returns the backend URL resolved from the environment.
func (s StoreConfig) URL() string {
	if s.URLEnv == "" {
		return ""
	}
	return os.Getenv(s.URLEnv)
}

// FeedConfig controls the WebSocket task feed.
type FeedConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	PageSize int           `yaml:"page_size"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Level returns the parsed log level. Unknown values were rejected by validate.
func (c *ServerConfig) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// FromEnv builds a configuration without a file, for the Lambda entry point.
// The backend defaults to dynamodb and may be overridden by TASKS_STORE_BACKEND;
// LOG_LEVEL sets the log level. The dynamodb backend requires TABLE_NAME.
func FromEnv() (*Config, error) {
	cfg := defaults()
	cfg.Server.Store.Backend = BackendDynamoDB
	if b := os.Getenv("TASKS_STORE_BACKEND"); b != "" {
		cfg.Server.Store.Backend = strings.ToLower(b)
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.Server.LogLevel = strings.ToLower(lvl)
	}
	st := cfg.Server.Store
	if st.Backend == BackendDynamoDB && os.Getenv(st.TableEnv) == "" {
		return nil, fmt.Errorf("server config: %s must be set for backend %q", st.TableEnv, st.Backend)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			LogLevel: DefaultLogLevel,
			Store: StoreConfig{
				Backend:  DefaultBackend,
				Table:    DefaultTable,
				TableEnv: DefaultTableEnv,
				URLEnv:   DefaultURLEnv,
			},
			Feed: FeedConfig{
				Enabled:  true,
				Interval: DefaultFeedInterval,
				PageSize: DefaultFeedPageSize,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    DefaultMetricsPath,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := &cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}
	switch s.Store.Backend {
	case BackendMemory, BackendRedis, BackendPostgres, BackendNATS, BackendDynamoDB:
	default:
		return fmt.Errorf("server.store.backend %q unknown: want memory|redis|postgres|nats|dynamodb", s.Store.Backend)
	}
	if s.Store.Backend != BackendMemory && s.Store.EffectiveTable() == "" {
		return fmt.Errorf("server.store.table must be set for backend %q", s.Store.Backend)
	}
	if s.Feed.Enabled {
		if s.Feed.Interval <= 0 {
			return fmt.Errorf("server.feed.interval must be positive")
		}
		if s.Feed.PageSize < 1 || s.Feed.PageSize > 500 {
			return fmt.Errorf("server.feed.page_size %d is out of range [1, 500]", s.Feed.PageSize)
		}
	}
	if s.Metrics.Enabled {
		if err := validateMetricsPath(s.Metrics.Path); err != nil {
			return err
		}
	}
	return nil
}

// validateMetricsPath rejects paths that collide with the task routes or the
// feed on the server mux.
func validateMetricsPath(p string) error {
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("server.metrics.path %q must start with /", p)
	}
	if p == "/" || p == FeedPath || p == "/tasks" || strings.HasPrefix(p, "/tasks/") {
		return fmt.Errorf("server.metrics.path %q collides with a served route", p)
	}
	return nil
}
