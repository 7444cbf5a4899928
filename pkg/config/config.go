package config

import (
	"errors"
	"fmt"
	"io/fs"
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

	Database     DatabaseConfig
	Redis        RedisConfig
	CORS         CORSConfig
	Log          LogConfig
	Classifier   ClassifierConfig
	Verification VerificationConfig
	Stats        StatsConfig
	Metrics      MetricsConfig
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ClassifierConfig points at the chat-completions endpoint used to verify concerns.
type ClassifierConfig struct {
	APIURL       string
	APIKey       string
	Model        string
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
	Timeout      time.Duration
}

// VerificationConfig tunes the verification queue.
type VerificationConfig struct {
	Delay                 time.Duration
	ProcessPendingOnStart bool
}

// StatsConfig governs caching of the concern overview statistics.
type StatsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// MetricsConfig toggles Prometheus instrumentation.
type MetricsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Classifier = ClassifierConfig{
		APIURL:       strings.TrimRight(v.GetString("CLASSIFIER_API_URL"), "/"),
		APIKey:       v.GetString("CLASSIFIER_API_KEY"),
		Model:        v.GetString("CLASSIFIER_MODEL"),
		MaxTokens:    v.GetInt("CLASSIFIER_MAX_TOKENS"),
		Temperature:  v.GetFloat64("CLASSIFIER_TEMPERATURE"),
		SystemPrompt: v.GetString("CLASSIFIER_SYSTEM_PROMPT"),
		Timeout:      parseDuration(v.GetString("CLASSIFIER_TIMEOUT"), 30*time.Second),
	}

	cfg.Verification = VerificationConfig{
		Delay:                 parseDuration(v.GetString("VERIFICATION_DELAY"), 1500*time.Millisecond),
		ProcessPendingOnStart: v.GetBool("VERIFICATION_PROCESS_PENDING_ON_START"),
	}

	cfg.Stats = StatsConfig{
		CacheEnabled: v.GetBool("ENABLE_STATS_CACHE"),
		CacheTTL:     parseDuration(v.GetString("STATS_CACHE_TTL"), time.Minute),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("ENABLE_METRICS"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Verification.Delay < 0 {
		return fmt.Errorf("VERIFICATION_DELAY must not be negative, got %s", c.Verification.Delay)
	}
	if c.Classifier.Temperature < 0 || c.Classifier.Temperature > 2 {
		return fmt.Errorf("CLASSIFIER_TEMPERATURE must be between 0 and 2, got %g", c.Classifier.Temperature)
	}
	if c.Env == EnvProduction && c.Classifier.APIKey == "" {
		return errors.New("CLASSIFIER_API_KEY is required in production")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "concern_verifier")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CLASSIFIER_API_URL", "https://api.mistral.ai/v1")
	v.SetDefault("CLASSIFIER_API_KEY", "")
	v.SetDefault("CLASSIFIER_MODEL", "mistral-large-latest")
	v.SetDefault("CLASSIFIER_MAX_TOKENS", 4000)
	v.SetDefault("CLASSIFIER_TEMPERATURE", 0.4)
	v.SetDefault("CLASSIFIER_SYSTEM_PROMPT", "")
	v.SetDefault("CLASSIFIER_TIMEOUT", "30s")

	v.SetDefault("VERIFICATION_DELAY", "1500ms")
	v.SetDefault("VERIFICATION_PROCESS_PENDING_ON_START", false)

	v.SetDefault("ENABLE_STATS_CACHE", false)
	v.SetDefault("STATS_CACHE_TTL", "1m")
	v.SetDefault("ENABLE_METRICS", true)
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
