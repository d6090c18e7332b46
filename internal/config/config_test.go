package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, v := range []string{
		"ADDR", "LOG_LEVEL", "REDIS_URL", "DATABASE_URL",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "ANTHROPIC_API_KEY",
		"STABILITY_API_KEY", "OLLAMA_BASE_URL", "AWS_REGION",
		"OTLP_ENDPOINT", "DEFAULT_RATE_LIMIT_RPM", "DISPATCH_TIMEOUT",
	} {
		t.Setenv(v, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.OpenAIBaseURL != "https://api.openai.com/v1" {
		t.Errorf("OpenAIBaseURL = %q", cfg.OpenAIBaseURL)
	}
	if cfg.OllamaBaseURL != "http://localhost:11434" {
		t.Errorf("OllamaBaseURL = %q", cfg.OllamaBaseURL)
	}
	if cfg.DefaultRateLimit != 60 {
		t.Errorf("DefaultRateLimit = %d, want 60", cfg.DefaultRateLimit)
	}
	if cfg.DispatchTimeout != 60*time.Second {
		t.Errorf("DispatchTimeout = %v, want 60s", cfg.DispatchTimeout)
	}
	if cfg.UseAWSSecrets {
		t.Error("UseAWSSecrets defaults to false")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STABILITY_API_KEY", "sd-test")
	t.Setenv("DEFAULT_RATE_LIMIT_RPM", "120")
	t.Setenv("DISPATCH_TIMEOUT", "30")
	t.Setenv("USE_AWS_SECRETS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
	if cfg.RedisURL != "redis://localhost:6379" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.StabilityAPIKey != "sd-test" {
		t.Errorf("StabilityAPIKey = %q", cfg.StabilityAPIKey)
	}
	if cfg.DefaultRateLimit != 120 {
		t.Errorf("DefaultRateLimit = %d, want 120", cfg.DefaultRateLimit)
	}
	if cfg.DispatchTimeout != 30*time.Second {
		t.Errorf("DispatchTimeout = %v, want 30s", cfg.DispatchTimeout)
	}
	if !cfg.UseAWSSecrets {
		t.Error("UseAWSSecrets = false, want true")
	}
}

func TestDurationEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("DISPATCH_TIMEOUT", "soon")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DispatchTimeout != 60*time.Second {
		t.Errorf("DispatchTimeout = %v, want the 60s default", cfg.DispatchTimeout)
	}
}
