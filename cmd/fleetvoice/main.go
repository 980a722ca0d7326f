// Command fleetvoice is a terminal chat client for the fleet-card
// voice agents. It mints an ephemeral credential from the gateway,
// drives the realtime session, and renders the conversation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fleetvoice/fleetvoice/internal/dotenv"
	"github.com/fleetvoice/fleetvoice/pkg/agents"
	"github.com/fleetvoice/fleetvoice/pkg/prefs"
	"github.com/fleetvoice/fleetvoice/pkg/session"
	"github.com/fleetvoice/fleetvoice/pkg/tools"
)

type clientConfig struct {
	GatewayURL string
	GatewayKey string
	AgentSet   string
}

func loadClientConfig() clientConfig {
	return clientConfig{
		GatewayURL: envOr("FLEETVOICE_GATEWAY_URL", "http://localhost:8080"),
		GatewayKey: envOr("FLEETVOICE_GATEWAY_KEY", ""),
		AgentSet:   envOr("FLEETVOICE_AGENT_SET", agents.DefaultSetKey),
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// fetchCredential asks the gateway to mint an ephemeral realtime
// credential and extracts the client secret.
func fetchCredential(httpClient *http.Client, cfg clientConfig) session.CredentialFunc {
	return func(ctx context.Context) (string, error) {
		url := strings.TrimRight(cfg.GatewayURL, "/") + "/session"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		if cfg.GatewayKey != "" {
			req.Header.Set("Authorization", "Bearer "+cfg.GatewayKey)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("session mint request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return "", fmt.Errorf("session mint read: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("session mint failed with status %d", resp.StatusCode)
		}

		var minted struct {
			ClientSecret struct {
				Value string `json:"value"`
			} `json:"client_secret"`
		}
		if err := json.Unmarshal(body, &minted); err != nil {
			return "", fmt.Errorf("session mint decode: %w", err)
		}
		if minted.ClientSecret.Value == "" {
			return "", fmt.Errorf("session mint response had no client secret")
		}
		return minted.ClientSecret.Value, nil
	}
}

func run() error {
	if err := dotenv.LoadFile(".env"); err != nil {
		return err
	}
	cfg := loadClientConfig()

	logPath := envOr("FLEETVOICE_CLIENT_LOG", "")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open client log: %w", err)
		}
		defer func() { _ = f.Close() }()
		logger = slog.New(slog.NewTextHandler(f, nil))
	}

	prefPath, err := prefs.DefaultPath()
	if err != nil {
		return fmt.Errorf("resolve prefs path: %w", err)
	}
	prefStore := prefs.NewStore(prefPath)
	p, err := prefStore.Load()
	if err != nil {
		logger.Warn("preferences unreadable, using defaults", "error", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	endpoint := tools.NewEndpointClient(
		strings.TrimRight(cfg.GatewayURL, "/")+"/api/tools",
		httpClient, tools.EndpointConfig{}, logger)

	chat := session.NewChatProjection()

	var program *tea.Program
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}

	controller, err := session.New(session.Options{
		Registry:   agents.Builtin(),
		SetKey:     cfg.AgentSet,
		Credential: fetchCredential(httpClient, cfg),
		Endpoint:   endpoint,
		Logger:     logger,
		PushToTalk: p.PushToTalk,
		OnStatus: func(status session.Status) {
			send(statusMsg(status))
		},
		OnAgentResponse: func(text string) {
			chat.AgentResponse(text)
		},
		OnTyping: func(typing bool) {
			chat.SetTyping(typing)
			send(typingMsg(typing))
		},
		OnReveal: func(component string, params map[string]any) {
			send(revealMsg{component: component, params: params})
		},
	})
	if err != nil {
		return err
	}
	defer controller.Disconnect()

	savePrefs := func(pushToTalk, eventsExpanded, audioEnabled bool) {
		p.PushToTalk = pushToTalk
		p.EventsPaneExpanded = eventsExpanded
		p.AudioPlaybackEnabled = audioEnabled
		if err := prefStore.Save(p); err != nil {
			logger.Warn("failed to save preferences", "error", err)
		}
	}

	model := newUIModel(controller, chat, p.EventsPaneExpanded, p.AudioPlaybackEnabled, savePrefs)
	program = tea.NewProgram(model, tea.WithAltScreen())

	chat.SetObserver(func() { send(chatMsg{}) })
	controller.Transcript().SetObserver(func() { send(transcriptMsg{}) })

	_, err = program.Run()
	return err
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fleetvoice: %v\n", err)
		os.Exit(1)
	}
}
