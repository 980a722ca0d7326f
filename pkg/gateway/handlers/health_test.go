package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fleetvoice/fleetvoice/pkg/gateway/config"
)

func validConfig() config.Config {
	return config.Config{
		AuthMode:                      config.AuthModeOptional,
		APIKeys:                       map[string]struct{}{},
		OpenAIAPIKey:                  "sk-test",
		OpenAIBaseURL:                 "https://api.openai.com",
		RealtimeModel:                 "gpt-4o-realtime-preview-2024-12-17",
		RealtimeVoice:                 "coral",
		MaxBodyBytes:                  1 << 20,
		ReadHeaderTimeout:             time.Second,
		ReadTimeout:                   time.Second,
		HandlerTimeout:                time.Minute,
		ShutdownGracePeriod:           time.Second,
		UpstreamConnectTimeout:        time.Second,
		UpstreamResponseHeaderTimeout: time.Second,
	}
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	HealthHandler{}.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Body.String() != "ok\n" {
		t.Fatalf("body=%q", rr.Body.String())
	}
}

func TestReadyHandler_ValidConfig_Ready(t *testing.T) {
	t.Parallel()

	h := ReadyHandler{Config: validConfig()}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ok, _ := resp["ok"].(bool); !ok {
		t.Fatalf("expected ok=true, body=%q", rr.Body.String())
	}
}

func TestReadyHandler_RequiredAuthEmptyKeys_NotReady(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.AuthMode = config.AuthModeRequired
	h := ReadyHandler{Config: cfg}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ok, _ := resp["ok"].(bool); ok {
		t.Fatalf("expected ok=false")
	}
	if issues, _ := resp["issues"].([]any); len(issues) == 0 {
		t.Fatalf("expected issues to be listed")
	}
}

func TestReadyHandler_MissingUpstreamKey_NotReady(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.OpenAIAPIKey = ""
	h := ReadyHandler{Config: cfg}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}
