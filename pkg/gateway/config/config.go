package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AuthMode string

const (
	AuthModeRequired AuthMode = "required"
	AuthModeOptional AuthMode = "optional"
	AuthModeDisabled AuthMode = "disabled"
)

type Config struct {
	Addr string

	AuthMode AuthMode
	APIKeys  map[string]struct{}

	// CORS
	CORSAllowedOrigins map[string]struct{} // empty => disabled

	// Upstream realtime backend used to mint ephemeral session
	// credentials.
	OpenAIAPIKey  string
	OpenAIBaseURL string
	RealtimeModel string
	RealtimeVoice string

	// Optional Postgres DSN for the tool-call audit store. Empty
	// disables persistence.
	DatabaseDSN string

	// Optional Stripe secret key for issuing real virtual cards.
	// Empty falls back to synthesized card data.
	StripeAPIKey       string
	StripeCardholderID string

	MaxBodyBytes int64

	// Operational defaults
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	HandlerTimeout      time.Duration
	ShutdownGracePeriod time.Duration

	// Upstream HTTP client defaults
	UpstreamConnectTimeout        time.Duration
	UpstreamResponseHeaderTimeout time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                          envOr("FLEETVOICE_ADDR", ":8080"),
		AuthMode:                      AuthMode(envOr("FLEETVOICE_AUTH_MODE", string(AuthModeRequired))),
		APIKeys:                       make(map[string]struct{}),
		CORSAllowedOrigins:            make(map[string]struct{}),
		OpenAIAPIKey:                  envOr("OPENAI_API_KEY", ""),
		OpenAIBaseURL:                 envOr("FLEETVOICE_OPENAI_BASE_URL", "https://api.openai.com"),
		RealtimeModel:                 envOr("FLEETVOICE_REALTIME_MODEL", "gpt-4o-realtime-preview-2024-12-17"),
		RealtimeVoice:                 envOr("FLEETVOICE_REALTIME_VOICE", "coral"),
		DatabaseDSN:                   envOr("FLEETVOICE_DATABASE_DSN", ""),
		StripeAPIKey:                  envOr("STRIPE_API_KEY", ""),
		StripeCardholderID:            envOr("STRIPE_CARDHOLDER_ID", ""),
		MaxBodyBytes:                  envInt64Or("FLEETVOICE_MAX_BODY_BYTES", 1<<20), // 1 MiB
		ReadHeaderTimeout:             envDurationOr("FLEETVOICE_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:                   envDurationOr("FLEETVOICE_READ_TIMEOUT", 30*time.Second),
		HandlerTimeout:                envDurationOr("FLEETVOICE_TOTAL_REQUEST_TIMEOUT", time.Minute),
		ShutdownGracePeriod:           envDurationOr("FLEETVOICE_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
		UpstreamConnectTimeout:        envDurationOr("FLEETVOICE_CONNECT_TIMEOUT", 5*time.Second),
		UpstreamResponseHeaderTimeout: envDurationOr("FLEETVOICE_RESPONSE_HEADER_TIMEOUT", 30*time.Second),
	}

	switch cfg.AuthMode {
	case AuthModeRequired, AuthModeOptional, AuthModeDisabled:
	default:
		return Config{}, fmt.Errorf("FLEETVOICE_AUTH_MODE must be one of required|optional|disabled")
	}

	for _, key := range splitCSV(os.Getenv("FLEETVOICE_API_KEYS")) {
		cfg.APIKeys[key] = struct{}{}
	}

	for _, origin := range splitCSV(os.Getenv("FLEETVOICE_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return Config{}, fmt.Errorf("OPENAI_API_KEY must be set")
	}
	if strings.TrimSpace(cfg.OpenAIBaseURL) == "" {
		return Config{}, fmt.Errorf("FLEETVOICE_OPENAI_BASE_URL must not be empty")
	}
	if strings.TrimSpace(cfg.RealtimeModel) == "" {
		return Config{}, fmt.Errorf("FLEETVOICE_REALTIME_MODEL must not be empty")
	}
	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("FLEETVOICE_MAX_BODY_BYTES must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("FLEETVOICE_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("FLEETVOICE_READ_TIMEOUT must be > 0")
	}
	if cfg.HandlerTimeout <= 0 {
		return Config{}, fmt.Errorf("FLEETVOICE_TOTAL_REQUEST_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("FLEETVOICE_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	if cfg.UpstreamConnectTimeout <= 0 {
		return Config{}, fmt.Errorf("FLEETVOICE_CONNECT_TIMEOUT must be > 0")
	}
	if cfg.UpstreamResponseHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("FLEETVOICE_RESPONSE_HEADER_TIMEOUT must be > 0")
	}

	if cfg.AuthMode == AuthModeRequired && len(cfg.APIKeys) == 0 {
		return Config{}, fmt.Errorf("FLEETVOICE_API_KEYS must be set when FLEETVOICE_AUTH_MODE=required")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
