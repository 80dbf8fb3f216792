package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	PostgreSQL PostgreSQLConfig
	OpenAI     OpenAIConfig
	Assistant  AssistantConfig
	Providers  ProvidersConfig
	Navigation NavigationConfig
	Questions  QuestionsConfig
	Session    SessionConfig
	Export     ExportConfig
	RateLimit  RateLimitConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// PostgreSQLConfig holds the property store connection. The store is
// optional; without it details come from the data API only.
type PostgreSQLConfig struct {
	Enabled            bool
	DSN                string
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
	SimilarLimit       int
}

// OpenAIConfig holds OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey          string
	APIBase         string
	ChatModel       string
	ChatTemperature float64
	ChatTopP        float64
	ChatMaxTokens   int
	ChatExtraBody   string // JSON object merged into the request, e.g. {"chat_template_kwargs":{"thinking":true}}
	Timeout         time.Duration
	Enabled         bool
}

// Assistant backends
const (
	BackendRemote = "remote"
	BackendOpenAI = "openai"
)

// AssistantConfig selects and tunes the chat backend
type AssistantConfig struct {
	Backend      string
	RemoteURL    string
	Timeout      time.Duration
	HistoryLimit int
}

// ProvidersConfig points at the listing and neighbourhood data API
type ProvidersConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NavigationConfig tunes deferred link navigation
type NavigationConfig struct {
	DeferredMode string
	SettleDelay  time.Duration
	MaxWait      time.Duration
}

// QuestionsConfig tunes follow-up question generation
type QuestionsConfig struct {
	Enabled bool
	Timeout time.Duration
}

// SessionConfig bounds the in-memory session registry
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
	MaxSessions   int
}

// ExportConfig holds the S3-compatible transcript bucket
type ExportConfig struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string // set for R2 or MinIO
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// RateLimitConfig limits requests per client IP
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	apiKey := getEnv("OPENAI_API_KEY", "")
	defaultBackend := BackendRemote
	if apiKey != "" {
		defaultBackend = BackendOpenAI
	}
	dsn := getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", "")))
	bucket := getEnv("EXPORT_BUCKET", getEnv("R2_BUCKET_NAME", ""))

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		PostgreSQL: PostgreSQLConfig{
			Enabled:            dsn != "" || getEnvAsBool("PG_ENABLED", false),
			DSN:                dsn,
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "rebot"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
			SimilarLimit:       getEnvAsInt("PG_SIMILAR_LIMIT", 4),
		},
		OpenAI: OpenAIConfig{
			APIKey:          apiKey,
			APIBase:         strings.TrimRight(getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"), "/"),
			ChatModel:       getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature: getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.7),
			ChatTopP:        getEnvAsFloat("OPENAI_CHAT_TOP_P", 0),
			ChatMaxTokens:   getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 1024),
			ChatExtraBody:   getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			Timeout:         getEnvAsDuration("OPENAI_TIMEOUT", 30*time.Second),
			Enabled:         apiKey != "",
		},
		Assistant: AssistantConfig{
			Backend:      strings.ToLower(getEnv("ASSISTANT_BACKEND", defaultBackend)),
			RemoteURL:    strings.TrimRight(getEnv("ASSISTANT_URL", "https://cs532-project.onrender.com"), "/"),
			Timeout:      getEnvAsDuration("ASSISTANT_TIMEOUT", 15*time.Second),
			HistoryLimit: getEnvAsInt("ASSISTANT_HISTORY_LIMIT", 20),
		},
		Providers: ProvidersConfig{
			BaseURL: strings.TrimRight(getEnv("DATA_API_BASE", "http://localhost:3000"), "/"),
			APIKey:  getEnv("DATA_API_KEY", ""),
			Timeout: getEnvAsDuration("DATA_API_TIMEOUT", 10*time.Second),
		},
		Navigation: NavigationConfig{
			DeferredMode: getEnv("NAV_DEFERRED_MODE", "chained"),
			SettleDelay:  getEnvAsDuration("NAV_SETTLE_DELAY", time.Second),
			MaxWait:      getEnvAsDuration("NAV_MAX_WAIT", 10*time.Second),
		},
		Questions: QuestionsConfig{
			Enabled: getEnvAsBool("QUESTIONS_ENABLED", true),
			Timeout: getEnvAsDuration("QUESTIONS_TIMEOUT", 5*time.Second),
		},
		Session: SessionConfig{
			TTL:           getEnvAsDuration("SESSION_TTL", 30*time.Minute),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Minute),
			MaxSessions:   getEnvAsInt("SESSION_MAX", 1000),
		},
		Export: ExportConfig{
			Enabled:         bucket != "",
			Bucket:          bucket,
			Region:          getEnv("EXPORT_REGION", "auto"),
			Endpoint:        getEnv("EXPORT_ENDPOINT", getEnv("R2_ENDPOINT_URL", "")),
			AccessKeyID:     getEnv("EXPORT_ACCESS_KEY_ID", getEnv("R2_ACCESS_KEY_ID", "")),
			SecretAccessKey: getEnv("EXPORT_SECRET_ACCESS_KEY", getEnv("R2_SECRET_ACCESS_KEY", "")),
			Prefix:          getEnv("EXPORT_PREFIX", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 5),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with
func (c *Config) Validate() error {
	switch c.Assistant.Backend {
	case BackendRemote:
		if c.Assistant.RemoteURL == "" {
			return fmt.Errorf("ASSISTANT_URL is required for the remote assistant backend")
		}
	case BackendOpenAI:
		if !c.OpenAI.Enabled {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai assistant backend")
		}
	default:
		return fmt.Errorf("unknown ASSISTANT_BACKEND %q (want %s or %s)", c.Assistant.Backend, BackendRemote, BackendOpenAI)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port)
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("1500ms") or plain seconds ("15")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if secs, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return value
}
