package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Config is the top-level configuration structure.
type Config struct {
	Server        ServerConfig        `json:"server"`
	Executor      ExecutorConfig      `json:"executor"`
	Collaboration CollaborationConfig `json:"collaboration"`
	Breaker       BreakerConfig       `json:"breaker"`
	Comms         CommsConfig         `json:"comms"`
	Metrics       MetricsConfig       `json:"metrics"`
	Database      DatabaseConfig      `json:"database"`
	MigrationsDir string              `json:"migrations_dir"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type ExecutorConfig struct {
	MaxConcurrent    int      `json:"max_concurrent"`
	TaskTimeout      Duration `json:"task_timeout"`
	DefaultUserID    string   `json:"default_user_id"`
	DefaultSessionID string   `json:"default_session_id"`
}

type CollaborationConfig struct {
	Timeout Duration `json:"timeout"`
}

type BreakerConfig struct {
	Enabled     bool     `json:"enabled"`
	MaxFailures uint32   `json:"max_failures"`
	Timeout     Duration `json:"timeout"`
	Interval    Duration `json:"interval"`
}

type CommsConfig struct {
	// Backend is "memory" or "redis".
	Backend string `json:"backend"`
}

type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

// Duration accepts "30s"-style strings or integer nanoseconds in JSON.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s == "" {
			*d = 0
			return nil
		}
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string or integer: %s", b)
	}
	*d = Duration(n)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Defaults returns the configuration used when a field is left unset.
func Defaults() *Config {
	return &Config{
		Server:        ServerConfig{Port: 8080, LogLevel: "info"},
		Executor:      ExecutorConfig{MaxConcurrent: 10, TaskTimeout: Duration(2 * time.Minute), DefaultUserID: "system", DefaultSessionID: "default"},
		Collaboration: CollaborationConfig{Timeout: Duration(10 * time.Minute)},
		Breaker:       BreakerConfig{Enabled: true, MaxFailures: 5, Timeout: Duration(30 * time.Second), Interval: Duration(time.Minute)},
		Comms:         CommsConfig{Backend: "memory"},
		Metrics:       MetricsConfig{Enabled: true, Namespace: "auraos"},
		MigrationsDir: "migrations",
	}
}

// applyDefaults fills zero values from Defaults. Booleans are taken as written.
func (c *Config) applyDefaults() {
	d := Defaults()
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = d.Server.LogLevel
	}
	if c.Executor.MaxConcurrent <= 0 {
		c.Executor.MaxConcurrent = d.Executor.MaxConcurrent
	}
	if c.Executor.TaskTimeout == 0 {
		c.Executor.TaskTimeout = d.Executor.TaskTimeout
	}
	if c.Executor.DefaultUserID == "" {
		c.Executor.DefaultUserID = d.Executor.DefaultUserID
	}
	if c.Executor.DefaultSessionID == "" {
		c.Executor.DefaultSessionID = d.Executor.DefaultSessionID
	}
	if c.Collaboration.Timeout == 0 {
		c.Collaboration.Timeout = d.Collaboration.Timeout
	}
	if c.Breaker.MaxFailures == 0 {
		c.Breaker.MaxFailures = d.Breaker.MaxFailures
	}
	if c.Breaker.Timeout == 0 {
		c.Breaker.Timeout = d.Breaker.Timeout
	}
	if c.Breaker.Interval == 0 {
		c.Breaker.Interval = d.Breaker.Interval
	}
	if c.Comms.Backend == "" {
		c.Comms.Backend = d.Comms.Backend
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
	if c.MigrationsDir == "" {
		c.MigrationsDir = d.MigrationsDir
	}
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.Comms.Backend {
	case "memory":
	case "redis":
		if c.Database.Redis.URL == "" {
			return fmt.Errorf("comms backend redis requires database.redis.url")
		}
	default:
		return fmt.Errorf("unknown comms backend %q", c.Comms.Backend)
	}
	if c.Executor.TaskTimeout < 0 || c.Collaboration.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes raw JSON after ${VAR} substitution and fills defaults.
func Parse(data []byte) (*Config, error) {
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
