package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	CORS          CORSConfig
	JWT           JWTConfig
	Log           LogConfig
	Evaluator     EvaluatorConfig
	Grading       GradingConfig
	Window        WindowConfig
	Notifications NotificationsConfig
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds the shared secret of the identity service issuing access tokens.
type JWTConfig struct {
	Secret string
}

type LogConfig struct {
	Level  string
	Format string
}

// EvaluatorConfig points the essay evaluator at a text-generation endpoint.
// An empty Endpoint disables AI scoring; long answers then go to manual review.
type EvaluatorConfig struct {
	Endpoint         string
	APIKey           string
	APIKeyHeader     string
	Model            string
	Timeout          time.Duration
	ResponseTextPath string
}

// GradingConfig tunes attempt scoring.
type GradingConfig struct {
	Concurrency int
}

// WindowConfig provides defaults for schools without an explicit grading policy.
type WindowConfig struct {
	DefaultLockAfterMinutes int
	DefaultTimezone         string
	BypassRoles             []string
	PolicyCacheTTL          time.Duration
}

// NotificationsConfig controls the outbound grade notification queue.
type NotificationsConfig struct {
	Enabled    bool
	WebhookURL string
	Workers    int
	Retries    int
	Timeout    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		SQLitePath:   v.GetString("DB_SQLITE_PATH"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Evaluator = EvaluatorConfig{
		Endpoint:         v.GetString("AI_ENDPOINT"),
		APIKey:           v.GetString("AI_API_KEY"),
		APIKeyHeader:     v.GetString("AI_API_KEY_HEADER"),
		Model:            v.GetString("AI_MODEL"),
		Timeout:          parseDuration(v.GetString("AI_TIMEOUT"), 20*time.Second),
		ResponseTextPath: v.GetString("AI_RESPONSE_TEXT_PATH"),
	}

	concurrency := v.GetInt("GRADING_CONCURRENCY")
	if concurrency <= 0 {
		concurrency = 4
	}
	cfg.Grading = GradingConfig{Concurrency: concurrency}

	cfg.Window = WindowConfig{
		DefaultLockAfterMinutes: v.GetInt("WINDOW_DEFAULT_LOCK_AFTER_MINUTES"),
		DefaultTimezone:         v.GetString("WINDOW_DEFAULT_TIMEZONE"),
		BypassRoles:             splitAndTrim(v.GetString("WINDOW_BYPASS_ROLES")),
		PolicyCacheTTL:          parseDuration(v.GetString("POLICY_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled:    v.GetBool("ENABLE_NOTIFICATIONS"),
		WebhookURL: v.GetString("NOTIFY_WEBHOOK_URL"),
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		Retries:    v.GetInt("NOTIFY_RETRIES"),
		Timeout:    parseDuration(v.GetString("NOTIFY_TIMEOUT"), 5*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_scoring")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_SQLITE_PATH", "file:scoring.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("AI_ENDPOINT", "")
	v.SetDefault("AI_API_KEY", "")
	v.SetDefault("AI_API_KEY_HEADER", "x-goog-api-key")
	v.SetDefault("AI_MODEL", "gemini-1.5-flash")
	v.SetDefault("AI_TIMEOUT", "20s")
	v.SetDefault("AI_RESPONSE_TEXT_PATH", "candidates.0.content.parts.0.text")

	v.SetDefault("GRADING_CONCURRENCY", 4)

	v.SetDefault("WINDOW_DEFAULT_LOCK_AFTER_MINUTES", 0)
	v.SetDefault("WINDOW_DEFAULT_TIMEZONE", "UTC")
	v.SetDefault("WINDOW_BYPASS_ROLES", "SUPERADMIN,ADMIN")
	v.SetDefault("POLICY_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_NOTIFICATIONS", false)
	v.SetDefault("NOTIFY_WEBHOOK_URL", "")
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_RETRIES", 3)
	v.SetDefault("NOTIFY_TIMEOUT", "5s")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
