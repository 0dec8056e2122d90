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
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	Upstream  UpstreamConfig
	Checker   CheckerConfig
	Notify    NotifyConfig
	Retention RetentionConfig
	Admin     AdminConfig
	CORS      CORSConfig
	Log       LogConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// UpstreamConfig tunes the course data source client.
type UpstreamConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	RateLimitMax   int
	RateLimitSpan  time.Duration
	CacheTTL       time.Duration
	CacheEnabled   bool
}

// CheckerConfig governs the monitoring engine.
type CheckerConfig struct {
	DefaultInterval   time.Duration
	DeliveryWorkers   int
	DeliveryQueueSize int
	DeliveryRetries   int
	DeliveryAsync     bool
}

// NotifyConfig holds per-channel delivery settings.
type NotifyConfig struct {
	Email   EmailConfig
	SMS     SMSConfig
	Webhook WebhookConfig
}

type EmailConfig struct {
	Enabled  bool
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
	To       string
}

type SMSConfig struct {
	Enabled    bool
	AccountSID string
	AuthToken  string
	PhoneFrom  string
	PhoneTo    string
}

type WebhookConfig struct {
	Enabled bool
	URL     string
	Timeout time.Duration
}

// RetentionConfig controls the snapshot history sweep.
type RetentionConfig struct {
	Enabled  bool
	CronSpec string
	MaxAge   time.Duration
}

// AdminConfig guards destructive admin endpoints.
type AdminConfig struct {
	JWTSecret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Upstream = UpstreamConfig{
		BaseURL:        v.GetString("UPSTREAM_BASE_URL"),
		RequestTimeout: parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 10*time.Second),
		RateLimitMax:   v.GetInt("UPSTREAM_RATE_LIMIT_REQUESTS"),
		RateLimitSpan:  parseDuration(v.GetString("UPSTREAM_RATE_LIMIT_WINDOW"), time.Minute),
		CacheTTL:       parseDuration(v.GetString("UPSTREAM_CACHE_TTL"), time.Minute),
		CacheEnabled:   v.GetBool("UPSTREAM_CACHE_ENABLED"),
	}

	cfg.Checker = CheckerConfig{
		DefaultInterval:   parseDuration(v.GetString("CHECK_INTERVAL"), 5*time.Minute),
		DeliveryWorkers:   v.GetInt("DELIVERY_WORKERS"),
		DeliveryQueueSize: v.GetInt("DELIVERY_QUEUE_SIZE"),
		DeliveryRetries:   v.GetInt("DELIVERY_RETRIES"),
		DeliveryAsync:     v.GetBool("DELIVERY_ASYNC"),
	}

	cfg.Notify = NotifyConfig{
		Email: EmailConfig{
			Enabled:  v.GetBool("EMAIL_ENABLED"),
			SMTPHost: v.GetString("EMAIL_SMTP_HOST"),
			SMTPPort: v.GetInt("EMAIL_SMTP_PORT"),
			Username: v.GetString("EMAIL_SMTP_USER"),
			Password: v.GetString("EMAIL_SMTP_PASS"),
			From:     v.GetString("EMAIL_FROM"),
			To:       v.GetString("EMAIL_TO"),
		},
		SMS: SMSConfig{
			Enabled:    v.GetBool("SMS_ENABLED"),
			AccountSID: v.GetString("TWILIO_ACCOUNT_SID"),
			AuthToken:  v.GetString("TWILIO_AUTH_TOKEN"),
			PhoneFrom:  v.GetString("TWILIO_PHONE_FROM"),
			PhoneTo:    v.GetString("TWILIO_PHONE_TO"),
		},
		Webhook: WebhookConfig{
			Enabled: v.GetBool("WEBHOOK_ENABLED"),
			URL:     v.GetString("WEBHOOK_URL"),
			Timeout: parseDuration(v.GetString("WEBHOOK_TIMEOUT"), 10*time.Second),
		},
	}

	cfg.Retention = RetentionConfig{
		Enabled:  v.GetBool("RETENTION_ENABLED"),
		CronSpec: v.GetString("RETENTION_CRON"),
		MaxAge:   parseDuration(v.GetString("RETENTION_MAX_AGE"), 90*24*time.Hour),
	}

	cfg.Admin = AdminConfig{
		JWTSecret: v.GetString("ADMIN_JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "coursewatch")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("UPSTREAM_BASE_URL", "https://static.uwcourses.com")
	v.SetDefault("UPSTREAM_TIMEOUT", "10s")
	v.SetDefault("UPSTREAM_RATE_LIMIT_REQUESTS", 60)
	v.SetDefault("UPSTREAM_RATE_LIMIT_WINDOW", "60s")
	v.SetDefault("UPSTREAM_CACHE_TTL", "60s")
	v.SetDefault("UPSTREAM_CACHE_ENABLED", true)

	v.SetDefault("CHECK_INTERVAL", "5m")
	v.SetDefault("DELIVERY_WORKERS", 2)
	v.SetDefault("DELIVERY_QUEUE_SIZE", 32)
	v.SetDefault("DELIVERY_RETRIES", 1)
	v.SetDefault("DELIVERY_ASYNC", true)

	v.SetDefault("EMAIL_ENABLED", false)
	v.SetDefault("EMAIL_SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("EMAIL_SMTP_PORT", 587)
	v.SetDefault("SMS_ENABLED", false)
	v.SetDefault("WEBHOOK_ENABLED", false)
	v.SetDefault("WEBHOOK_TIMEOUT", "10s")

	v.SetDefault("RETENTION_ENABLED", false)
	v.SetDefault("RETENTION_CRON", "0 3 * * *")
	v.SetDefault("RETENTION_MAX_AGE", "2160h")

	v.SetDefault("ADMIN_JWT_SECRET", "dev_admin_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
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
