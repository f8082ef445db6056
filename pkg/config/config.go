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
	// Web server configuration
	HTTPAddr       string
	CookieSecure   bool
	SessionTTL     time.Duration
	MaxUploadBytes int64

	// Storage configuration
	DataDir   string
	UploadDir string

	// Telegram companion bot configuration, disabled when BotToken is empty
	BotToken string

	// OpenAI configuration, the daily question falls back to the local pool when OpenAIAPIKey is empty
	OpenAIAPIBase string
	OpenAIAPIKey  string
	OpenAIModel   string
	AITimeout     time.Duration

	// Scheduler configuration
	QuestionHour int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		HTTPAddr:      getEnvWithDefault("HTTP_ADDR", ":5000"),
		DataDir:       getEnvWithDefault("DATA_DIR", "./data"),
		UploadDir:     getEnvWithDefault("UPLOAD_DIR", "./uploads"),
		BotToken:      os.Getenv("BOT_TOKEN"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIAPIBase: getEnvWithDefault("OPENAI_API_BASE", "https://api.openai.com/v1"),
		OpenAIModel:   getEnvWithDefault("OPENAI_MODEL", "gpt-3.5-turbo"),
	}

	if cfg.CookieSecure, err = parseBool("COOKIE_SECURE", false); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = parseDuration("SESSION_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.AITimeout, err = parseDuration("AI_TIMEOUT", 8*time.Second); err != nil {
		return nil, err
	}

	maxUpload, err := parseInt("MAX_UPLOAD_BYTES", 8<<20)
	if err != nil {
		return nil, err
	}
	if maxUpload <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", maxUpload)
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	cfg.QuestionHour, err = parseInt("QUESTION_HOUR", 9)
	if err != nil {
		return nil, err
	}
	if cfg.QuestionHour < 0 || cfg.QuestionHour > 23 {
		return nil, fmt.Errorf("QUESTION_HOUR must be between 0 and 23, got %d", cfg.QuestionHour)
	}

	// Log configuration with sensitive data redacted
	logCfg := *cfg
	logCfg.BotToken = redact(logCfg.BotToken)
	logCfg.OpenAIAPIKey = redact(logCfg.OpenAIAPIKey)
	log.Printf("Configuration loaded: %+v", logCfg)
	return cfg, nil
}

// AIEnabled reports whether an OpenAI key was configured
func (c *Config) AIEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// BotEnabled reports whether the Telegram companion should be started
func (c *Config) BotEnabled() bool {
	return c.BotToken != ""
}

func redact(secret string) string {
	if len(secret) > 8 {
		return secret[:8] + "...REDACTED..."
	}
	return secret
}

// getEnvWithDefault returns the value of the environment variable or the default value
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseBool(key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func parseDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
