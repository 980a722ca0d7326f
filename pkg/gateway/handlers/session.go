package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fleetvoice/fleetvoice/pkg/core"
	"github.com/fleetvoice/fleetvoice/pkg/gateway/config"
	"github.com/fleetvoice/fleetvoice/pkg/gateway/mw"
)

// SessionHandler mints an ephemeral realtime credential by calling the
// upstream sessions endpoint with the server-held API key. The client
// never sees the long-lived key, only the short-lived client_secret in
// the passed-through response.
type SessionHandler struct {
	Config     config.Config
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (h SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	if r.Method != http.MethodGet {
		writeCoreErrorJSON(w, reqID, &core.Error{
			Type:      core.ErrInvalidRequest,
			Message:   "method not allowed",
			Code:      "method_not_allowed",
			RequestID: reqID,
		}, http.StatusMethodNotAllowed)
		return
	}

	if h.Config.OpenAIAPIKey == "" {
		writeCoreErrorJSON(w, reqID, &core.Error{
			Type:      core.ErrAPI,
			Message:   "upstream api key not configured",
			RequestID: reqID,
		}, http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(map[string]string{
		"model": h.Config.RealtimeModel,
		"voice": h.Config.RealtimeVoice,
	})
	if err != nil {
		writeCoreErrorJSON(w, reqID, &core.Error{
			Type:      core.ErrAPI,
			Message:   "failed to encode session request",
			RequestID: reqID,
		}, http.StatusInternalServerError)
		return
	}

	url := strings.TrimRight(h.Config.OpenAIBaseURL, "/") + "/v1/realtime/sessions"
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		writeCoreErrorJSON(w, reqID, &core.Error{
			Type:      core.ErrAPI,
			Message:   "failed to build upstream request",
			RequestID: reqID,
		}, http.StatusInternalServerError)
		return
	}
	req.Header.Set("Authorization", "Bearer "+h.Config.OpenAIAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		h.logger().Error("session mint upstream failed", "request_id", reqID, "error", err)
		writeCoreErrorJSON(w, reqID, &core.Error{
			Type:      core.ErrTransport,
			Message:   "upstream session request failed",
			RequestID: reqID,
		}, http.StatusBadGateway)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	// Pass the upstream response through verbatim, including upstream
	// error payloads and their status codes.
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger().Warn("session mint response copy failed", "request_id", reqID, "error", err)
	}
}

func (h SessionHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
