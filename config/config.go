package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Gemini    GeminiConfig
	Limits    LimitsConfig
	Retention RetentionConfig
	App       AppConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GeminiConfig configures the upstream generative-language API.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// LimitsConfig holds the upstream quota margins and retry policy. The exact
// thresholds are deployment configuration, set below the published hard limits
// of the configured model tier.
type LimitsConfig struct {
	RequestsPerMinute int
	RequestsPerDay    int
	MaxRetries        int
	RetryBaseDelay    time.Duration
}

type RetentionConfig struct {
	Days int // 0 disables the sweep
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
	APIKey      string // X-API-Key expected from frontend callers
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "pageforge"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			Timeout: time.Duration(getEnvAsInt("GEMINI_TIMEOUT_SECONDS", 90)) * time.Second,
		},
		Limits: LimitsConfig{
			RequestsPerMinute: getEnvAsInt("GEN_REQUESTS_PER_MINUTE", 14),
			RequestsPerDay:    getEnvAsInt("GEN_REQUESTS_PER_DAY", 1400),
			MaxRetries:        getEnvAsInt("GEN_MAX_RETRIES", 2),
			RetryBaseDelay:    time.Duration(getEnvAsInt("GEN_RETRY_BASE_DELAY_SECONDS", 2)) * time.Second,
		},
		Retention: RetentionConfig{
			Days: getEnvAsInt("RETENTION_DAYS", 30),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			APIKey:      getEnv("API_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	if c.Limits.RequestsPerMinute <= 0 || c.Limits.RequestsPerDay <= 0 {
		return fmt.Errorf("generation request limits must be positive")
	}

	return nil
}

// DSN builds a lib/pq connection string from the database config.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}
