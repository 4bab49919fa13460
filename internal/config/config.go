package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Ledger sources.
const (
	SourceAPI      = "api"
	SourcePostgres = "postgres"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Finance backend
	FinanceAPIURL string
	FinanceAPIKey string
	LedgerSource  string // api | postgres

	// Postgres (LEDGER_SOURCE=postgres)
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Kafka; no brokers means bill events are dropped
	KafkaBrokers    []string
	KafkaBillsTopic string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// JWT; empty disables token validation on /v1
	JWTSecret string

	// Per-client throttle on /v1/tax/resolve
	ResolveRateLimit float64
	ResolveRateBurst int
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		FinanceAPIURL: getEnv("FINANCE_API_URL", "http://localhost:8081"),
		FinanceAPIKey: getEnv("FINANCE_API_KEY", ""),
		LedgerSource:  strings.ToLower(getEnv("LEDGER_SOURCE", SourceAPI)),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),

		KafkaBrokers:    getEnvList("KAFKA_BROKERS"),
		KafkaBillsTopic: getEnv("KAFKA_BILLS_TOPIC", "finadmin.bills"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 30*time.Second),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		ResolveRateLimit: getEnvFloat("RESOLVE_RATE_LIMIT", 20),
		ResolveRateBurst: getEnvInt("RESOLVE_RATE_BURST", 40),
	}
}

// Validate reports configuration that cannot start the server.
func (c *Config) Validate() error {
	switch c.LedgerSource {
	case SourceAPI:
		if c.FinanceAPIURL == "" {
			return fmt.Errorf("FINANCE_API_URL is required when LEDGER_SOURCE=%s", SourceAPI)
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when LEDGER_SOURCE=%s", SourcePostgres)
		}
	default:
		return fmt.Errorf("unknown LEDGER_SOURCE %q (want %s or %s)", c.LedgerSource, SourceAPI, SourcePostgres)
	}
	if c.ResolveRateLimit <= 0 || c.ResolveRateBurst <= 0 {
		return fmt.Errorf("RESOLVE_RATE_LIMIT and RESOLVE_RATE_BURST must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
