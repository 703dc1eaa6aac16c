// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	FOLIO_HOST="0.0.0.0"
//	FOLIO_PORT="8080"
//	FOLIO_HEALTH_PORT="9090"
//	FOLIO_READ_TIMEOUT="15s"
//	FOLIO_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	FOLIO_POSTGRES_URL="postgres://localhost/folio"
//	FOLIO_POSTGRES_MAX_CONNS="25"
//	FOLIO_POSTGRES_IDLE_CONNS="5"
//	FOLIO_POSTGRES_CONN_LIFETIME="30m"
//
// Cache settings:
//
//	FOLIO_CACHE_ENABLED="true"
//	FOLIO_CACHE_MAX_ENTRIES="4096"
//	FOLIO_REDIS_ENABLED="false"
//	FOLIO_REDIS_ADDR="localhost:6379"
//	FOLIO_REDIS_POOL_SIZE="10"
//
// Sweeper settings:
//
//	FOLIO_SWEEP_SCHEDULE="@every 10m"
//	FOLIO_BADGE_DEFINITIONS="/etc/folio/badges.yaml"
//	FOLIO_SYSTEM_PROFILE_ID="1"
//
// Rate limit settings:
//
//	FOLIO_RATELIMIT_ENABLED="true"
//	FOLIO_RATELIMIT_WINDOW="1m"
//	FOLIO_RATELIMIT_IDENTIFIED="300"
//	FOLIO_RATELIMIT_ANONYMOUS="60"
//
// Observability settings:
//
//	FOLIO_LOG_LEVEL="info"  # debug, info, warn, error
//	FOLIO_METRICS_ENABLED="true"
//	FOLIO_OTEL_ENABLED="false"
//	FOLIO_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Database: %s\n", cfg.Database.URL)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/store: Uses database configuration
//   - pkg/cache: Uses cache and redis configuration
//   - pkg/observability: Uses observability configuration
package config
