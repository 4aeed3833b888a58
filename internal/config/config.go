package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the fuelhaul server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Workflow   WorkflowConfig
	Metrics    MetricsConfig
	Migrations MigrationsConfig
	Auth       AuthConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// WorkflowConfig tunes the job registry and the request guard rails around it.
type WorkflowConfig struct {
	SnapshotCacheTTL   time.Duration
	RateLimitPerMinute int
}

type MetricsConfig struct {
	Enabled bool
}

type MigrationsConfig struct {
	Dir string
}

// AuthConfig carries the optional admin key installed for the default depot at startup.
type AuthConfig struct {
	BootstrapKey string
}

// Bootstrap keys share the shape of issued keys: "fh_" followed by at least 16 characters.
const (
	bootstrapKeyPrefix = "fh_"
	bootstrapKeyMinLen = len(bootstrapKeyPrefix) + 16
)

var validEnvs = map[string]bool{
	"development": true,
	"staging":     true,
	"production":  true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("FUELHAUL_PORT", 8080),
			Env:  envString("FUELHAUL_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Workflow: WorkflowConfig{
			SnapshotCacheTTL:   envDuration("SNAPSHOT_CACHE_TTL", 10*time.Minute),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Metrics: MetricsConfig{
			Enabled: envBool("METRICS_ENABLED", true),
		},
		Migrations: MigrationsConfig{
			Dir: envString("MIGRATIONS_DIR", "migrations"),
		},
		Auth: AuthConfig{
			BootstrapKey: os.Getenv("ADMIN_BOOTSTRAP_KEY"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("FUELHAUL_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !validEnvs[c.Server.Env] {
		return fmt.Errorf("FUELHAUL_ENV must be one of development, staging, production; got %q", c.Server.Env)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if !strings.HasPrefix(c.Database.URL, "postgres://") && !strings.HasPrefix(c.Database.URL, "postgresql://") {
		return fmt.Errorf("DATABASE_URL must start with postgres:// or postgresql://")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Workflow.SnapshotCacheTTL <= 0 {
		return fmt.Errorf("SNAPSHOT_CACHE_TTL must be positive, got %s", c.Workflow.SnapshotCacheTTL)
	}
	if c.Workflow.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.Workflow.RateLimitPerMinute)
	}

	if key := c.Auth.BootstrapKey; key != "" {
		if !strings.HasPrefix(key, bootstrapKeyPrefix) || len(key) < bootstrapKeyMinLen {
			return fmt.Errorf("ADMIN_BOOTSTRAP_KEY must start with %s and be at least %d characters", bootstrapKeyPrefix, bootstrapKeyMinLen)
		}
		if strings.ContainsAny(key, " \t\r\n") {
			return fmt.Errorf("ADMIN_BOOTSTRAP_KEY must not contain whitespace")
		}
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
