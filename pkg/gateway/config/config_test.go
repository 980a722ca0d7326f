package config

import (
	"strings"
	"testing"
	"time"
)

var gatewayEnvKeys = []string{
	"FLEETVOICE_ADDR",
	"FLEETVOICE_AUTH_MODE",
	"FLEETVOICE_API_KEYS",
	"FLEETVOICE_CORS_ORIGINS",
	"OPENAI_API_KEY",
	"FLEETVOICE_OPENAI_BASE_URL",
	"FLEETVOICE_REALTIME_MODEL",
	"FLEETVOICE_REALTIME_VOICE",
	"FLEETVOICE_DATABASE_DSN",
	"STRIPE_API_KEY",
	"FLEETVOICE_MAX_BODY_BYTES",
	"FLEETVOICE_READ_HEADER_TIMEOUT",
	"FLEETVOICE_READ_TIMEOUT",
	"FLEETVOICE_TOTAL_REQUEST_TIMEOUT",
	"FLEETVOICE_SHUTDOWN_GRACE_PERIOD",
	"FLEETVOICE_CONNECT_TIMEOUT",
	"FLEETVOICE_RESPONSE_HEADER_TIMEOUT",
}

func clearGatewayEnv(t *testing.T) {
	t.Helper()
	for _, key := range gatewayEnvKeys {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("FLEETVOICE_API_KEYS", "fv_sk_test")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.AuthMode != AuthModeRequired {
		t.Fatalf("AuthMode = %q, want %q", cfg.AuthMode, AuthModeRequired)
	}
	if cfg.OpenAIBaseURL != "https://api.openai.com" {
		t.Fatalf("OpenAIBaseURL = %q", cfg.OpenAIBaseURL)
	}
	if cfg.RealtimeModel != "gpt-4o-realtime-preview-2024-12-17" {
		t.Fatalf("RealtimeModel = %q", cfg.RealtimeModel)
	}
	if cfg.RealtimeVoice != "coral" {
		t.Fatalf("RealtimeVoice = %q, want coral", cfg.RealtimeVoice)
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Fatalf("MaxBodyBytes = %d, want %d", cfg.MaxBodyBytes, int64(1<<20))
	}
	if cfg.HandlerTimeout != time.Minute {
		t.Fatalf("HandlerTimeout = %v, want 1m", cfg.HandlerTimeout)
	}
	if cfg.ShutdownGracePeriod != 30*time.Second {
		t.Fatalf("ShutdownGracePeriod = %v, want 30s", cfg.ShutdownGracePeriod)
	}
	if _, ok := cfg.APIKeys["fv_sk_test"]; !ok {
		t.Fatalf("APIKeys = %v, want fv_sk_test present", cfg.APIKeys)
	}
	if cfg.DatabaseDSN != "" {
		t.Fatalf("DatabaseDSN = %q, want empty by default", cfg.DatabaseDSN)
	}
}

func TestLoadFromEnv_RequiresOpenAIKey(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("FLEETVOICE_API_KEYS", "fv_sk_test")

	if _, err := LoadFromEnv(); err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("err = %v, want OPENAI_API_KEY error", err)
	}
}

func TestLoadFromEnv_RequiredAuthNeedsKeys(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	if _, err := LoadFromEnv(); err == nil || !strings.Contains(err.Error(), "FLEETVOICE_API_KEYS") {
		t.Fatalf("err = %v, want FLEETVOICE_API_KEYS error", err)
	}

	t.Setenv("FLEETVOICE_AUTH_MODE", "disabled")
	if _, err := LoadFromEnv(); err != nil {
		t.Fatalf("auth disabled should not require keys, got %v", err)
	}
}

func TestLoadFromEnv_InvalidAuthMode(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("FLEETVOICE_AUTH_MODE", "sometimes")

	if _, err := LoadFromEnv(); err == nil || !strings.Contains(err.Error(), "FLEETVOICE_AUTH_MODE") {
		t.Fatalf("err = %v, want auth mode error", err)
	}
}

func TestLoadFromEnv_CSVParsing(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("FLEETVOICE_AUTH_MODE", "disabled")
	t.Setenv("FLEETVOICE_CORS_ORIGINS", " https://a.example.com, https://b.example.com ,")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("CORSAllowedOrigins = %v, want 2 entries", cfg.CORSAllowedOrigins)
	}
	if _, ok := cfg.CORSAllowedOrigins["https://a.example.com"]; !ok {
		t.Fatal("missing trimmed origin")
	}
}
