package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fleetvoice/fleetvoice/pkg/core"
)

// Default circuit breaker settings for the tool execution endpoint.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// EndpointConfig configures the circuit breaker guarding the tool
// execution endpoint.
type EndpointConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration
}

// EndpointClient executes routed tool calls against a remote HTTP endpoint.
// Repeated failures open a circuit breaker so that new calls fail fast
// instead of piling up behind a dead endpoint.
type EndpointClient struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[map[string]any]
	logger  *slog.Logger
}

// NewEndpointClient builds a client for the tool execution endpoint at url.
// If httpClient is nil, http.DefaultClient is used. Zero-valued cfg fields
// fall back to defaults.
func NewEndpointClient(url string, httpClient *http.Client, cfg EndpointConfig, logger *slog.Logger) *EndpointClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[map[string]any](gobreaker.Settings{
		Name:        "tool-endpoint",
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &EndpointClient{
		url:     url,
		client:  httpClient,
		breaker: cb,
		logger:  logger,
	}
}

// Execute POSTs {tool_name, tool_params} to the endpoint and returns the
// decoded JSON result. Non-2xx responses and transport failures count
// against the circuit breaker.
func (c *EndpointClient) Execute(ctx context.Context, toolName string, params map[string]any) (map[string]any, error) {
	result, err := c.breaker.Execute(func() (map[string]any, error) {
		return c.post(ctx, toolName, params)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, core.NewToolError(fmt.Sprintf("tool endpoint circuit open: %v", err))
		}
		return nil, err
	}
	return result, nil
}

func (c *EndpointClient) post(ctx context.Context, toolName string, params map[string]any) (map[string]any, error) {
	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(map[string]any{
		"tool_name":   toolName,
		"tool_params": params,
	})
	if err != nil {
		return nil, core.NewToolError(fmt.Sprintf("encode tool request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, core.NewToolError(fmt.Sprintf("build tool request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, core.NewToolError(fmt.Sprintf("call tool endpoint: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewToolError(fmt.Sprintf("read tool response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var fail struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &fail) == nil && fail.Error != "" {
			return nil, core.NewToolError(fail.Error)
		}
		return nil, core.NewToolError(fmt.Sprintf("tool endpoint returned status %d", resp.StatusCode))
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, core.NewToolError(fmt.Sprintf("decode tool response: %v", err))
	}
	return result, nil
}

// State returns the current circuit breaker state for monitoring.
func (c *EndpointClient) State() gobreaker.State {
	return c.breaker.State()
}
