// Package config loads router settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr     string
	LogLevel string

	RedisURL    string
	DatabaseURL string

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	StabilityAPIKey string
	OllamaBaseURL   string
	AWSRegion       string

	EncryptionKey string
	UseAWSSecrets bool

	AdminUsername     string
	AdminPasswordHash string

	OTLPEndpoint string

	SNSTopicArn      string
	UsageQueueURL    string
	DefaultRateLimit int

	DispatchTimeout time.Duration
	ShutdownTimeout time.Duration
	DrainTimeout    time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Addr:     getEnv("ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RedisURL:    getEnv("REDIS_URL", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		StabilityAPIKey: getEnv("STABILITY_API_KEY", ""),
		OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		AWSRegion:       getEnv("AWS_REGION", ""),

		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		UseAWSSecrets: getEnv("USE_AWS_SECRETS", "false") == "true",

		AdminUsername:     getEnv("ADMIN_USERNAME", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),

		SNSTopicArn:      getEnv("SNS_TOPIC_ARN", ""),
		UsageQueueURL:    getEnv("USAGE_QUEUE_URL", ""),
		DefaultRateLimit: getIntEnv("DEFAULT_RATE_LIMIT_RPM", 60),

		DispatchTimeout: getDurationEnv("DISPATCH_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		DrainTimeout:    getDurationEnv("DRAIN_TIMEOUT", 15*time.Second),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
