package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/safecheck"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Host            string
	Port            int
	Environment     string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Rate limiting (requests per second per user; 0 disables)
	RateLimitRPS   float64
	RateLimitBurst int

	// Storage backend
	StorageBackend string

	// Database settings
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// SQLite settings
	SQLitePath string

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// Report archive storage
	ReportStorage   string
	ReportLocalPath string
	ReportLocalURL  string
	ReportS3Bucket  string
	ReportS3Region  string
	ReportS3BaseURL string

	// Email settings
	EmailProvider        string
	EmailPostmarkToken   string
	EmailPostmarkAccount string
	EmailFromAddress     string
	EmailFromName        string
	EmailBaseURL         string

	// Notification recipients
	NotifySupervisorEmails []string
	NotifyAdminEmails      []string
	NotifyInspectorEmails  map[string]string

	// Notification delivery (0 workers sends inline)
	NotifyWorkers      int
	NotifyMaxAttempts  int
	NotifyRetryBackoff time.Duration

	// Workflow settings
	RejectionPolicy   safecheck.RejectionPolicy
	AnalyticsCacheTTL time.Duration
}

// LoadConfig loads configuration from environment variables.
func LoadConfig(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		// Server settings
		Host:            envString(getenv, "SERVER_HOST", "localhost"),
		Port:            envInt(getenv, "SERVER_PORT", 8080),
		Environment:     envString(getenv, "ENVIRONMENT", "dev"),
		LogLevel:        envString(getenv, "LOG_LEVEL", "info"),
		ShutdownTimeout: envDuration(getenv, "SHUTDOWN_TIMEOUT", 10*time.Second),

		RateLimitRPS:   envFloat(getenv, "RATE_LIMIT_RPS", 0),
		RateLimitBurst: envInt(getenv, "RATE_LIMIT_BURST", 0),

		StorageBackend: strings.ToLower(envString(getenv, "STORAGE_BACKEND", BackendMemory)),

		// Database settings
		DBUser:     envString(getenv, "DB_USER", "postgres"),
		DBPassword: envString(getenv, "DB_PASSWORD", ""),
		DBHost:     envString(getenv, "DB_HOSTNAME", "localhost"),
		DBPort:     envString(getenv, "DB_PORT", "5432"),
		DBName:     envString(getenv, "DB_NAME", "postgres"),

		SQLitePath: envString(getenv, "SQLITE_PATH", "./safecheck.db"),

		RedisAddr:     envString(getenv, "REDIS_ADDR", "localhost:6379"),
		RedisPassword: envString(getenv, "REDIS_PASSWORD", ""),
		RedisDB:       envInt(getenv, "REDIS_DB", 0),
		RedisPrefix:   envString(getenv, "REDIS_PREFIX", "safecheck:"),

		// Report archive storage
		ReportStorage:   strings.ToLower(envString(getenv, "REPORT_STORAGE", "local")),
		ReportLocalPath: envString(getenv, "REPORT_LOCAL_PATH", "./reports"),
		ReportLocalURL:  envString(getenv, "REPORT_LOCAL_URL", "http://localhost:8080/api/reports"),
		ReportS3Bucket:  envString(getenv, "REPORT_S3_BUCKET", ""),
		ReportS3Region:  envString(getenv, "REPORT_S3_REGION", "us-east-1"),
		ReportS3BaseURL: envString(getenv, "REPORT_S3_BASE_URL", ""),

		// Email settings
		EmailProvider:        strings.ToLower(envString(getenv, "EMAIL_PROVIDER", "log")),
		EmailPostmarkToken:   envString(getenv, "POSTMARK_SERVER_TOKEN", ""),
		EmailPostmarkAccount: envString(getenv, "POSTMARK_ACCOUNT_TOKEN", ""),
		EmailFromAddress:     envString(getenv, "EMAIL_FROM_ADDRESS", "noreply@example.com"),
		EmailFromName:        envString(getenv, "EMAIL_FROM_NAME", "Safecheck"),
		EmailBaseURL:         envString(getenv, "EMAIL_BASE_URL", "http://localhost:8080"),

		NotifySupervisorEmails: envList(getenv, "NOTIFY_SUPERVISOR_EMAILS"),
		NotifyAdminEmails:      envList(getenv, "NOTIFY_ADMIN_EMAILS"),

		NotifyWorkers:      envInt(getenv, "NOTIFY_WORKERS", 2),
		NotifyMaxAttempts:  envInt(getenv, "NOTIFY_MAX_ATTEMPTS", 3),
		NotifyRetryBackoff: envDuration(getenv, "NOTIFY_RETRY_BACKOFF", 30*time.Second),

		AnalyticsCacheTTL: envDuration(getenv, "ANALYTICS_CACHE_TTL", time.Minute),
	}

	inspectors, err := envPairs(getenv, "NOTIFY_INSPECTOR_EMAILS")
	if err != nil {
		return nil, err
	}
	cfg.NotifyInspectorEmails = inspectors

	policy, err := safecheck.ParseRejectionPolicy(strings.ToLower(getenv("REJECTION_POLICY")))
	if err != nil {
		return nil, fmt.Errorf("REJECTION_POLICY: %s", safecheck.ErrorMessage(err))
	}
	cfg.RejectionPolicy = policy

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// IsProduction reports whether the server runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "prod" || c.Environment == "production"
}

// validate rejects unknown providers and missing provider settings.
func (c *Config) validate() error {
	switch c.StorageBackend {
	case BackendMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORAGE_BACKEND=memory loses all records on restart and is not allowed in production")
		}
	case BackendPostgres:
		if c.DBName == "" {
			return fmt.Errorf("DB_NAME is required for the postgres backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (want memory, postgres, sqlite or redis)", c.StorageBackend)
	}

	switch c.ReportStorage {
	case "local":
		if c.ReportLocalPath == "" {
			return fmt.Errorf("REPORT_LOCAL_PATH is required for local report storage")
		}
	case "s3":
		if c.ReportS3Bucket == "" {
			return fmt.Errorf("REPORT_S3_BUCKET is required for s3 report storage")
		}
	default:
		return fmt.Errorf("unknown REPORT_STORAGE %q (want local or s3)", c.ReportStorage)
	}

	switch c.EmailProvider {
	case "log":
	case "postmark":
		if c.EmailPostmarkToken == "" {
			return fmt.Errorf("POSTMARK_SERVER_TOKEN is required for the postmark email provider")
		}
	default:
		return fmt.Errorf("unknown EMAIL_PROVIDER %q (want log or postmark)", c.EmailProvider)
	}

	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	if c.NotifyWorkers < 0 {
		return fmt.Errorf("NOTIFY_WORKERS must not be negative")
	}
	if c.NotifyMaxAttempts < 1 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// Helper functions for loading environment variables with defaults.

func envString(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(getenv func(string) string, key string, defaultValue int) int {
	if value := getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func envFloat(getenv func(string) string, key string, defaultValue float64) float64 {
	if value := getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func envDuration(getenv func(string) string, key string, defaultValue time.Duration) time.Duration {
	if value := getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// envList splits a comma-separated value, dropping blanks.
func envList(getenv func(string) string, key string) []string {
	var out []string
	for _, v := range strings.Split(getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// envPairs parses comma-separated name=value pairs.
func envPairs(getenv func(string) string, key string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range envList(getenv, key) {
		name, value, ok := strings.Cut(pair, "=")
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("%s: malformed entry %q (want name=address)", key, pair)
		}
		out[name] = value
	}
	return out, nil
}
