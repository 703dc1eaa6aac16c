package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/folioworks/folio/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Cache configuration
	Cache CacheConfig

	// Sweeper configuration
	Sweeper SweeperConfig

	// Rate limit configuration
	RateLimit RateLimitConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// CacheConfig holds entity cache configuration
type CacheConfig struct {
	Enabled    bool
	MaxEntries int
}

// SweeperConfig holds award sweeper configuration
type SweeperConfig struct {
	Schedule        string
	DefinitionsPath string
	SystemProfileID int64
}

// RateLimitConfig holds write rate limit settings. Limits are tokens
// per window; anonymous callers get the tighter budget.
type RateLimitConfig struct {
	Enabled         bool
	Window          time.Duration
	IdentifiedLimit int
	IdentifiedBurst int
	AnonymousLimit  int
	AnonymousBurst  int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Cache:         loadCacheConfig(),
		Sweeper:       loadSweeperConfig(),
		RateLimit:     loadRateLimitConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("FOLIO_HOST", "0.0.0.0"),
		Port:            getEnv("FOLIO_PORT", "8080"),
		ReadTimeout:     getEnvDuration("FOLIO_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("FOLIO_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("FOLIO_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("FOLIO_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("FOLIO_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads database configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:          getEnv("FOLIO_POSTGRES_URL", ""),
		MaxOpenConns: getEnvInt("FOLIO_POSTGRES_MAX_CONNS", 25),
		MaxIdleConns: getEnvInt("FOLIO_POSTGRES_IDLE_CONNS", 5),
		ConnLifetime: getEnvDuration("FOLIO_POSTGRES_CONN_LIFETIME", 30*time.Minute),
	}
}

// loadRedisConfig loads Redis configuration from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:  getEnvBool("FOLIO_REDIS_ENABLED", false),
		Addr:     getEnv("FOLIO_REDIS_ADDR", "localhost:6379"),
		Password: getEnv("FOLIO_REDIS_PASSWORD", ""),
		DB:       getEnvInt("FOLIO_REDIS_DB", 0),
		PoolSize: getEnvInt("FOLIO_REDIS_POOL_SIZE", 10),
	}
}

// loadCacheConfig loads entity cache configuration from environment
func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:    getEnvBool("FOLIO_CACHE_ENABLED", true),
		MaxEntries: getEnvInt("FOLIO_CACHE_MAX_ENTRIES", 4096),
	}
}

// loadSweeperConfig loads award sweeper configuration from environment
func loadSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Schedule:        getEnv("FOLIO_SWEEP_SCHEDULE", "@every 10m"),
		DefinitionsPath: getEnv("FOLIO_BADGE_DEFINITIONS", ""),
		SystemProfileID: getEnvInt64("FOLIO_SYSTEM_PROFILE_ID", 1),
	}
}

// loadRateLimitConfig loads write rate limit configuration from environment
func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:         getEnvBool("FOLIO_RATELIMIT_ENABLED", true),
		Window:          getEnvDuration("FOLIO_RATELIMIT_WINDOW", time.Minute),
		IdentifiedLimit: getEnvInt("FOLIO_RATELIMIT_IDENTIFIED", 300),
		IdentifiedBurst: getEnvInt("FOLIO_RATELIMIT_IDENTIFIED_BURST", 30),
		AnonymousLimit:  getEnvInt("FOLIO_RATELIMIT_ANONYMOUS", 60),
		AnonymousBurst:  getEnvInt("FOLIO_RATELIMIT_ANONYMOUS_BURST", 10),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	cfg := ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("FOLIO_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("FOLIO_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("FOLIO_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("FOLIO_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("FOLIO_OTEL_SERVICE_NAME", "folio"),
		OTelServiceVersion: getEnv("FOLIO_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("FOLIO_OTEL_INSECURE", true),
	}

	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate database config
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("postgres max connections must be positive")
	}

	// Validate Redis config
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	// Validate sweeper config
	if c.Sweeper.Schedule == "" {
		return fmt.Errorf("sweep schedule is required")
	}

	// Validate rate limit config
	if c.RateLimit.Enabled {
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
		if c.RateLimit.IdentifiedLimit <= 0 || c.RateLimit.AnonymousLimit <= 0 {
			return fmt.Errorf("rate limits must be positive when rate limiting is enabled")
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
