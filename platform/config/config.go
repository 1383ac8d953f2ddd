// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// GHLConfig provides settings for the GoHighLevel OAuth app and API.
type GHLConfig interface {
	GetGHLClientID() string
	GetGHLClientSecret() string
	GetGHLRedirectURI() string
	GetGHLAPIBase() string
	GetGHLMarketplaceBase() string
}

// ListingsConfig provides settings for the external listing-search API.
type ListingsConfig interface {
	GetRapidAPIHost() string
	GetRapidAPIKey() string
}

// SchedulerConfig provides settings for asynq-based background processing.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetRunnerInterval() time.Duration
	GetRefresherInterval() time.Duration
}

// ExportConfig provides pacing settings for the lead exporter.
type ExportConfig interface {
	GetExportDelay() time.Duration
	GetBatchTimeout() time.Duration
}

// JobsConfig provides settings for the externally-triggered job endpoints.
type JobsConfig interface {
	GetJobsSharedSecret() string
}

// TokenCryptoConfig provides the key used to seal OAuth tokens at rest.
type TokenCryptoConfig interface {
	GetTokenCryptoKey() []byte
}

// AlertConfig provides settings for refresh-failure alert emails.
type AlertConfig interface {
	GetAlertsEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetAlertFromName() string
	GetAlertFromAddress() string
	GetAlertToAddress() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool

	GHLClientID        string
	GHLClientSecret    string
	GHLRedirectURI     string
	GHLAPIBase         string
	GHLMarketplaceBase string

	RapidAPIHost string
	RapidAPIKey  string

	RedisURL          string
	RedisTLSInsecure  bool
	AsynqQueueName    string
	AsynqConcurrency  int
	RunnerInterval    time.Duration
	RefresherInterval time.Duration

	ExportDelay  time.Duration
	BatchTimeout time.Duration

	JobsSharedSecret string
	TokenCryptoKey   []byte

	AlertsEnabled    bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	AlertFromName    string
	AlertFromAddress string
	AlertToAddress   string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// GHLConfig implementation
func (c *Config) GetGHLClientID() string        { return c.GHLClientID }
func (c *Config) GetGHLClientSecret() string    { return c.GHLClientSecret }
func (c *Config) GetGHLRedirectURI() string     { return c.GHLRedirectURI }
func (c *Config) GetGHLAPIBase() string         { return c.GHLAPIBase }
func (c *Config) GetGHLMarketplaceBase() string { return c.GHLMarketplaceBase }

// ListingsConfig implementation
func (c *Config) GetRapidAPIHost() string { return c.RapidAPIHost }
func (c *Config) GetRapidAPIKey() string  { return c.RapidAPIKey }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                 { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool           { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string           { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int            { return c.AsynqConcurrency }
func (c *Config) GetRunnerInterval() time.Duration    { return c.RunnerInterval }
func (c *Config) GetRefresherInterval() time.Duration { return c.RefresherInterval }

// ExportConfig implementation
func (c *Config) GetExportDelay() time.Duration  { return c.ExportDelay }
func (c *Config) GetBatchTimeout() time.Duration { return c.BatchTimeout }

// JobsConfig implementation
func (c *Config) GetJobsSharedSecret() string { return c.JobsSharedSecret }

// TokenCryptoConfig implementation
func (c *Config) GetTokenCryptoKey() []byte { return c.TokenCryptoKey }

// AlertConfig implementation
func (c *Config) GetAlertsEnabled() bool      { return c.AlertsEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetAlertFromName() string    { return c.AlertFromName }
func (c *Config) GetAlertFromAddress() string { return c.AlertFromAddress }
func (c *Config) GetAlertToAddress() string   { return c.AlertToAddress }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cryptoKey, err := parseCryptoKey(getEnv("TOKEN_CRYPTO_KEY", ""))
	if err != nil {
		return nil, err
	}

	smtpHost := getEnv("SMTP_HOST", "")
	alertTo := getEnv("ALERT_TO_ADDRESS", "")
	alertsEnabled := strings.EqualFold(getEnv("ALERTS_ENABLED", "true"), "true")

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		GHLClientID:        getEnv("GHL_CLIENT_ID", ""),
		GHLClientSecret:    getEnv("GHL_CLIENT_SECRET", ""),
		GHLRedirectURI:     getEnv("GHL_REDIRECT_URI", ""),
		GHLAPIBase:         getEnv("GHL_API_BASE", "https://services.leadconnectorhq.com"),
		GHLMarketplaceBase: getEnv("GHL_MARKETPLACE_BASE", "https://marketplace.leadconnectorhq.com"),

		RapidAPIHost: getEnv("RAPID_API_HOST", ""),
		RapidAPIKey:  getEnv("RAPID_API_KEY", ""),

		RedisURL:          getEnv("REDIS_URL", ""),
		RedisTLSInsecure:  strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:    getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:  mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		RunnerInterval:    mustDuration(getEnv("RUNNER_INTERVAL", "1m")),
		RefresherInterval: mustDuration(getEnv("REFRESHER_INTERVAL", "30m")),

		ExportDelay:  mustDuration(getEnv("EXPORT_DELAY", "150ms")),
		BatchTimeout: mustDuration(getEnv("BATCH_TIMEOUT", "10m")),

		JobsSharedSecret: getEnv("JOBS_SHARED_SECRET", ""),
		TokenCryptoKey:   cryptoKey,

		AlertsEnabled:    alertsEnabled && smtpHost != "" && alertTo != "",
		SMTPHost:         smtpHost,
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		AlertFromName:    getEnv("ALERT_FROM_NAME", "FSBO Finder"),
		AlertFromAddress: getEnv("ALERT_FROM_ADDRESS", ""),
		AlertToAddress:   alertTo,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.GHLClientID == "" || cfg.GHLClientSecret == "" {
		return nil, fmt.Errorf("GHL_CLIENT_ID and GHL_CLIENT_SECRET are required")
	}
	if cfg.AlertsEnabled && cfg.AlertFromAddress == "" {
		return nil, fmt.Errorf("ALERT_FROM_ADDRESS is required when alerts are enabled")
	}

	return cfg, nil
}

func parseCryptoKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, fmt.Errorf("TOKEN_CRYPTO_KEY is required")
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("TOKEN_CRYPTO_KEY must be hex-encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("TOKEN_CRYPTO_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
