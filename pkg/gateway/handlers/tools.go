package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fleetvoice/fleetvoice/pkg/agents"
	"github.com/fleetvoice/fleetvoice/pkg/gateway/config"
	"github.com/fleetvoice/fleetvoice/pkg/gateway/mw"
	"github.com/fleetvoice/fleetvoice/pkg/gateway/store"
	"github.com/fleetvoice/fleetvoice/pkg/tools"
)

// textLink maps a link_type to the URL texted to the caller.
type textLink struct {
	URL         string
	Description string
}

var textLinks = map[string]textLink{
	"replacement_card":   {"https://fleetcard.example.com/account/order-replacement", "replacement card order form"},
	"account_management": {"https://fleetcard.example.com/account/manage", "account management portal"},
	"payment_portal":     {"https://fleetcard.example.com/payments", "payment portal"},
	"virtual_card":       {"https://fleetcard.example.com/virtual-cards", "virtual card generator"},
}

// ToolsHandler executes the server-side tools the voice agents invoke.
// Success responses are flat JSON objects with success:true plus
// tool-specific fields; failures are {error} with a 4xx/5xx status.
type ToolsHandler struct {
	Config config.Config
	Store  store.Store
	Issuer CardIssuer
	Logger *slog.Logger
}

type toolRequest struct {
	ToolName   string         `json:"tool_name"`
	ToolParams map[string]any `json:"tool_params"`
}

func (h ToolsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	if r.Method != http.MethodPost {
		writeToolErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxBodyBytes)

	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeToolErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ToolParams == nil {
		req.ToolParams = map[string]any{}
	}

	var (
		result map[string]any
		err    error
	)
	switch req.ToolName {
	case tools.ToolRouteToHuman:
		result = h.routeToHuman(req.ToolParams)
	case tools.ToolSendTextLink:
		result = h.sendTextLink(req.ToolParams)
	case tools.ToolGenerateVirtualCard:
		result, err = h.generateVirtualCard(r, req.ToolParams)
	case tools.ToolDisplayPurchaseControls:
		result = displayUIResult("purchaseControls", "Displaying purchase controls interface.", req.ToolParams)
	case tools.ToolDisplayStatementSummary:
		result = displayUIResult("statementSummary", "Displaying statement summary interface.", req.ToolParams)
	case agents.TransferToolName:
		result = h.transferAgent(req.ToolParams)
	default:
		h.logger().Warn("unknown tool requested", "request_id", reqID, "tool", req.ToolName)
		writeToolErrorJSON(w, http.StatusBadRequest, "unknown tool: "+req.ToolName)
		return
	}

	if err != nil {
		h.logger().Error("tool execution failed", "request_id", reqID, "tool", req.ToolName, "error", err)
		h.record(r, reqID, req, map[string]any{"error": err.Error()}, false)
		writeToolErrorJSON(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to execute tool %s: %v", req.ToolName, err))
		return
	}

	h.logger().Info("tool executed", "request_id", reqID, "tool", req.ToolName)
	h.record(r, reqID, req, result, true)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}

func (h ToolsHandler) routeToHuman(params map[string]any) map[string]any {
	queueID, _ := params["queue_id"].(string)
	queueName, _ := params["queue_name"].(string)
	reason, _ := params["reason"].(string)

	h.logger().Info("routing to human queue", "queue_id", queueID, "queue_name", queueName, "reason", reason)

	return map[string]any{
		"success":    true,
		"message":    fmt.Sprintf("Successfully routed to Queue %s (%s)", queueID, queueName),
		"queue_id":   queueID,
		"queue_name": queueName,
	}
}

func (h ToolsHandler) sendTextLink(params map[string]any) map[string]any {
	phone, _ := params["phone_number"].(string)
	linkType, _ := params["link_type"].(string)

	// Unknown link types still report success with an empty link; the
	// agent apologizes in conversation rather than surfacing an error.
	link := textLinks[linkType]

	h.logger().Info("sending text link", "phone_number", phone, "link_type", linkType, "link", link.URL)

	return map[string]any{
		"success":      true,
		"message":      fmt.Sprintf("Text message with %s link sent to %s", link.Description, phone),
		"phone_number": phone,
		"link_type":    linkType,
		"link":         link.URL,
	}
}

func (h ToolsHandler) generateVirtualCard(r *http.Request, params map[string]any) (map[string]any, error) {
	merchantID, _ := params["merchant_location_id"].(string)
	cardNumber, _ := params["fleet_card_number"].(string)
	vehicleID, _ := params["vehicle_id"].(string)

	card, err := h.issuer().Issue(r.Context())
	if err != nil {
		return nil, err
	}

	h.logger().Info("generated virtual card",
		"merchant_location_id", merchantID, "vehicle_id", vehicleID, "last4", card.Last4)

	return map[string]any{
		"success":              true,
		"card_number_last4":    card.Last4,
		"expiration_date":      card.Expiration,
		"merchant_location_id": merchantID,
		"fleet_card_number":    cardNumber,
		"vehicle_id":           vehicleID,
	}, nil
}

func (h ToolsHandler) transferAgent(params map[string]any) map[string]any {
	destination, _ := params["destination_agent"].(string)
	rationale, _ := params["rationale_for_transfer"].(string)

	h.logger().Info("agent transfer requested", "destination_agent", destination, "rationale", rationale)

	return map[string]any{
		"success":     true,
		"message":     fmt.Sprintf("Requesting transfer to %s.", destination),
		"transfer_to": destination,
		"rationale":   rationale,
	}
}

func displayUIResult(ui, message string, params map[string]any) map[string]any {
	return map[string]any{
		"success":   true,
		"message":   message,
		"displayUI": ui,
		"params":    params,
	}
}

func (h ToolsHandler) record(r *http.Request, reqID string, req toolRequest, result map[string]any, success bool) {
	if h.Store == nil {
		return
	}

	paramsJSON, _ := json.Marshal(req.ToolParams)
	resultJSON, _ := json.Marshal(result)

	err := h.Store.RecordToolCall(r.Context(), store.ToolCall{
		RequestID: reqID,
		ToolName:  req.ToolName,
		Params:    paramsJSON,
		Result:    resultJSON,
		Success:   success,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		h.logger().Warn("tool call audit record failed", "request_id", reqID, "error", err)
	}
}

func (h ToolsHandler) issuer() CardIssuer {
	if h.Issuer != nil {
		return h.Issuer
	}
	return SyntheticIssuer{}
}

func (h ToolsHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
