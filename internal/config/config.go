// Package config provides environment configuration for the chat server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Completion endpoint settings
	APIURL            string
	ModelName         string
	LLMProvider       string
	LLMAPIKey         string
	LLMRequestTimeout time.Duration
	LLMHealthTimeout  time.Duration

	// Turn defaults
	DefaultTemperature float64
	DefaultMaxTokens   int
	MaxHistoryMessages int
	RateLimitInterval  time.Duration

	// HTTP rate limiting
	HTTPRateLimitRequests int
	HTTPRateLimitWindow   time.Duration

	// Browser
	CORSAllowedOrigins []string
	SecureCookies      bool

	// Sessions
	SessionIdleTimeout time.Duration

	// NATS transcript feed
	NATSEnabled  bool
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool

	// Export metadata
	AppRepository string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),

		// Completion endpoint
		APIURL:            getEnv("API_URL", "http://127.0.0.1:1234/v1/completions"),
		ModelName:         getEnv("MODEL_NAME", "your-model-name"),
		LLMProvider:       getEnv("LLM_PROVIDER", "local"),
		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMRequestTimeout: getDurationEnv("LLM_REQUEST_TIMEOUT", 30*time.Second),
		LLMHealthTimeout:  getDurationEnv("LLM_HEALTH_TIMEOUT", 5*time.Second),

		// Turn defaults
		DefaultTemperature: getFloatEnv("DEFAULT_TEMPERATURE", 0.7),
		DefaultMaxTokens:   getIntEnv("DEFAULT_MAX_TOKENS", 512),
		MaxHistoryMessages: getIntEnv("MAX_HISTORY_MESSAGES", 5),
		RateLimitInterval:  getSecondsEnv("RATE_LIMIT_SECONDS", time.Second),

		// HTTP rate limiting
		HTTPRateLimitRequests: getIntEnv("HTTP_RATE_LIMIT_REQUESTS", 120),
		HTTPRateLimitWindow:   getDurationEnv("HTTP_RATE_LIMIT_WINDOW", time.Minute),

		// Browser
		CORSAllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),
		SecureCookies:      getBoolEnv("SECURE_COOKIES", false),

		// Sessions
		SessionIdleTimeout: getDurationEnv("SESSION_IDLE_TIMEOUT", 2*time.Hour),

		// NATS
		NATSEnabled:  getBoolEnv("NATS_ENABLED", false),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),

		AppRepository: getEnv("APP_REPOSITORY", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getListEnv reads a comma-separated list, dropping empty entries.
func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getSecondsEnv reads a fractional number of seconds, e.g. "1.5".
func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f >= 0 {
			return time.Duration(f * float64(time.Second))
		}
	}
	return defaultValue
}
