// Package config loads medichat settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	DBPath         string // empty disables the turn journal
	WebDir         string
	MaxSessions    int
	AllowedOrigins []string
	LogDevelopment bool

	Completion CompletionConfig
	Language   LanguageConfig
}

// CompletionConfig describes the medical chat model endpoint.
type CompletionConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	CallTimeout time.Duration
}

// LanguageConfig describes the model used for detection and translation.
type LanguageConfig struct {
	APIKey      string
	Model       string
	CallTimeout time.Duration
}

// LoadDotEnv reads a .env file when one exists. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	callTimeout := getEnvDuration("CALL_TIMEOUT", 0)

	cfg := &Config{
		Port:           getEnv("PORT", "8100"),
		DBPath:         getEnv("DB_PATH", ""),
		WebDir:         getEnv("WEB_DIR", "web"),
		MaxSessions:    getEnvInt("MAX_SESSIONS", 256),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		LogDevelopment: getEnvBool("LOG_DEVELOPMENT", false),
		Completion: CompletionConfig{
			APIKey:      strings.TrimSpace(os.Getenv("HF_TOKEN")),
			BaseURL:     getEnv("HF_BASE_URL", "https://router.huggingface.co/v1"),
			Model:       getEnv("HF_MODEL", "Intelligent-Internet/II-Medical-8B-1706"),
			MaxTokens:   getEnvInt("MAX_TOKENS", 1000),
			Temperature: getEnvFloat("TEMPERATURE", 0.7),
			CallTimeout: callTimeout,
		},
		Language: LanguageConfig{
			APIKey:      strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
			Model:       getEnv("GOOGLE_MODEL", "gemini-1.5-flash-latest"),
			CallTimeout: callTimeout,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the fields that have no sensible fallback. Missing API keys
// are allowed: the affected component degrades instead.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be > 0")
	}
	if c.Completion.BaseURL == "" {
		return fmt.Errorf("HF_BASE_URL cannot be empty")
	}
	if c.Completion.Model == "" {
		return fmt.Errorf("HF_MODEL cannot be empty")
	}
	if c.Completion.MaxTokens <= 0 {
		return fmt.Errorf("MAX_TOKENS must be > 0")
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		return fmt.Errorf("TEMPERATURE must be within [0, 2]")
	}
	if c.Completion.CallTimeout < 0 {
		return fmt.Errorf("CALL_TIMEOUT cannot be negative")
	}
	if c.Language.Model == "" {
		return fmt.Errorf("GOOGLE_MODEL cannot be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
