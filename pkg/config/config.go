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

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	SMTP          SMTPConfig
	Voting        VotingConfig
	Investment    InvestmentConfig
	Notifications NotificationsConfig
	Reports       ReportsConfig
	OTP           OTPConfig
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

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SMTPConfig describes the outbound mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// VotingConfig holds the decision-engine defaults. The threshold and the two
// offsets seed the platform configuration table on first run and are editable
// by admins afterwards.
type VotingConfig struct {
	AcceptanceThreshold int
	CallbackOffsetDays  int
	ReapplyOffsetDays   int
	SummaryCacheTTL     time.Duration
}

// InvestmentConfig holds the investor-surface defaults. The minimum amount
// seeds the platform configuration and is editable by admins afterwards.
type InvestmentConfig struct {
	MinimumAmount float64
}

// NotificationsConfig tunes the outcome-email worker pool.
type NotificationsConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// ReportsConfig governs decision report exports.
type ReportsConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	WorkerConcurrency int
}

// OTPConfig controls the admin one-time-password login.
type OTPConfig struct {
	Length         int
	Expiry         time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
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

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.SMTP = SMTPConfig{
		Host:     v.GetString("SMTP_HOST"),
		Port:     v.GetInt("SMTP_PORT"),
		Username: v.GetString("SMTP_USER"),
		Password: v.GetString("SMTP_PASS"),
		From:     v.GetString("SMTP_FROM"),
	}

	cfg.Voting = VotingConfig{
		AcceptanceThreshold: v.GetInt("VOTING_ACCEPTANCE_THRESHOLD"),
		CallbackOffsetDays:  v.GetInt("VOTING_CALLBACK_OFFSET_DAYS"),
		ReapplyOffsetDays:   v.GetInt("VOTING_REAPPLY_OFFSET_DAYS"),
		SummaryCacheTTL:     parseDuration(v.GetString("VOTING_SUMMARY_CACHE_TTL"), 30*time.Second),
	}

	cfg.Investment = InvestmentConfig{
		MinimumAmount: v.GetFloat64("INVESTMENT_MINIMUM_AMOUNT"),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:    v.GetInt("NOTIFICATION_WORKERS"),
		MaxRetries: v.GetInt("NOTIFICATION_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFICATION_RETRY_DELAY"), 30*time.Second),
	}

	cfg.Reports = ReportsConfig{
		StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
	}

	cfg.OTP = OTPConfig{
		Length:         v.GetInt("OTP_LENGTH"),
		Expiry:         parseDuration(v.GetString("OTP_EXPIRY"), 10*time.Minute),
		MaxAttempts:    v.GetInt("OTP_MAX_ATTEMPTS"),
		ResendCooldown: parseDuration(v.GetString("OTP_RESEND_COOLDOWN"), time.Minute),
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
	v.SetDefault("DB_NAME", "crawdwall_capital")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SMTP_FROM", "Crawdwall Capital <noreply@crawdwall.com>")

	v.SetDefault("VOTING_ACCEPTANCE_THRESHOLD", 4)
	v.SetDefault("VOTING_CALLBACK_OFFSET_DAYS", 7)
	v.SetDefault("VOTING_REAPPLY_OFFSET_DAYS", 30)
	v.SetDefault("VOTING_SUMMARY_CACHE_TTL", "30s")

	v.SetDefault("INVESTMENT_MINIMUM_AMOUNT", 1000)

	v.SetDefault("NOTIFICATION_WORKERS", 2)
	v.SetDefault("NOTIFICATION_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATION_RETRY_DELAY", "30s")

	v.SetDefault("REPORTS_STORAGE_DIR", "./reports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_WORKER_CONCURRENCY", 1)

	v.SetDefault("OTP_LENGTH", 6)
	v.SetDefault("OTP_EXPIRY", "10m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 3)
	v.SetDefault("OTP_RESEND_COOLDOWN", "60s")
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
