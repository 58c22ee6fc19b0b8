// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	FrontendURL     string
	SessionTTL      time.Duration
	ReapInterval    time.Duration
	GameConfigPath  string
	Gemini          GeminiConfig
	Wolfram         WolframConfig
	ChatRateLimit   int
	ChatRateWindow  time.Duration
	ConversationLog ConversationLogConfig
}

// GeminiConfig configures the generative model used for puzzles and dialogue.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// WolframConfig configures the optional fact source.
type WolframConfig struct {
	AppID   string
	BaseURL string
	Timeout time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		SessionTTL:     getEnvDuration("SESSION_TTL", 60*time.Minute),
		ReapInterval:   getEnvDuration("SESSION_REAP_INTERVAL", 5*time.Minute),
		GameConfigPath: getEnv("GAME_CONFIG_PATH", ""),
		Gemini: GeminiConfig{
			// API_KEY is the name the browser build used.
			APIKey:  getEnv("GEMINI_API_KEY", getEnv("API_KEY", "")),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout: getEnvDuration("GEMINI_TIMEOUT", 20*time.Second),
		},
		Wolfram: WolframConfig{
			AppID:   getEnv("WOLFRAM_APP_ID", ""),
			BaseURL: getEnv("WOLFRAM_BASE_URL", "https://api.wolframalpha.com"),
			Timeout: getEnvDuration("WOLFRAM_TIMEOUT", 5*time.Second),
		},
		ChatRateLimit:  getEnvInt("CHAT_RATE_LIMIT", 20),
		ChatRateWindow: getEnvDuration("CHAT_RATE_WINDOW", time.Minute),
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", false),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/sessions"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/sessions/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.ReapInterval <= 0 {
		return fmt.Errorf("SESSION_REAP_INTERVAL must be > 0")
	}
	if c.Gemini.Model == "" {
		return fmt.Errorf("GEMINI_MODEL cannot be empty")
	}
	if c.Wolfram.AppID != "" && c.Wolfram.BaseURL == "" {
		return fmt.Errorf("WOLFRAM_BASE_URL cannot be empty when WOLFRAM_APP_ID is set")
	}
	if c.ChatRateLimit <= 0 || c.ChatRateWindow <= 0 {
		return fmt.Errorf("CHAT_RATE_LIMIT and CHAT_RATE_WINDOW must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the configured frontend.
func (c *Config) AllowedOrigins() []string {
	if c.IsDevelopment() {
		return []string{"*"}
	}
	return []string{c.FrontendURL}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
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
