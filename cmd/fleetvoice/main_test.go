package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchCredential(t *testing.T) {
	t.Parallel()

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/session" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer fv_key_1" {
			t.Errorf("authorization=%q", got)
		}
		_, _ = w.Write([]byte(`{"id":"sess_1","client_secret":{"value":"ek_test_9"}}`))
	}))
	defer gateway.Close()

	cred := fetchCredential(gateway.Client(), clientConfig{
		GatewayURL: gateway.URL,
		GatewayKey: "fv_key_1",
	})

	secret, err := cred(context.Background())
	if err != nil {
		t.Fatalf("credential: %v", err)
	}
	if secret != "ek_test_9" {
		t.Fatalf("secret=%q", secret)
	}
}

func TestFetchCredentialUpstreamError(t *testing.T) {
	t.Parallel()

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer gateway.Close()

	cred := fetchCredential(gateway.Client(), clientConfig{GatewayURL: gateway.URL})
	if _, err := cred(context.Background()); err == nil {
		t.Fatalf("expected error for non-200 mint response")
	}
}

func TestFetchCredentialMissingSecret(t *testing.T) {
	t.Parallel()

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"sess_1"}`))
	}))
	defer gateway.Close()

	cred := fetchCredential(gateway.Client(), clientConfig{GatewayURL: gateway.URL})
	if _, err := cred(context.Background()); err == nil {
		t.Fatalf("expected error when client secret missing")
	}
}

func TestRevealSummary(t *testing.T) {
	t.Parallel()

	got := revealSummary("purchaseControls", map[string]any{"preset": "Hurricane"})
	if got != "purchase controls (Hurricane preset)" {
		t.Fatalf("summary=%q", got)
	}

	got = revealSummary("statementSummary", map[string]any{"period": "March 2025"})
	if got != "statement summary for March 2025" {
		t.Fatalf("summary=%q", got)
	}

	if got = revealSummary("mystery", nil); got != "mystery" {
		t.Fatalf("summary=%q", got)
	}
}
