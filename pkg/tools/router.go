package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/fleetvoice/fleetvoice/pkg/agents"
	"github.com/fleetvoice/fleetvoice/pkg/realtime"
	"github.com/fleetvoice/fleetvoice/pkg/transcript"
)

// Tool names that are always delegated to the remote execution endpoint.
const (
	ToolRouteToHuman            = "route_to_human"
	ToolSendTextLink            = "send_text_link"
	ToolGenerateVirtualCard     = "generate_virtual_card"
	ToolDisplayPurchaseControls = "display_purchase_controls_ui"
	ToolDisplayStatementSummary = "display_statement_summary_ui"
)

// routedTools is the static classification table. Membership here wins over
// an agent's local logic, which in turn wins over the fallback stub.
var routedTools = map[string]bool{
	ToolRouteToHuman:            true,
	ToolSendTextLink:            true,
	ToolGenerateVirtualCard:     true,
	ToolDisplayPurchaseControls: true,
	ToolDisplayStatementSummary: true,
	agents.TransferToolName:     true,
}

// uiRevealTools map routed tool names to the component revealed when the
// endpoint does not name one itself.
var uiRevealTools = map[string]string{
	ToolDisplayPurchaseControls: "purchaseControls",
	ToolDisplayStatementSummary: "statementSummary",
}

// Call is one model-requested tool invocation, alive only for the duration
// of a single Dispatch.
type Call struct {
	Name      string
	CallID    string
	Arguments string
}

// SendFunc delivers a client event to the realtime transport. It may return
// realtime.ErrConnClosed if the session ended while a call was in flight.
type SendFunc func(event any) error

// Router resolves tool calls in three tiers: the routed table above goes to
// the remote execution endpoint, names in the active agent's local logic run
// in-process, and everything else resolves to a stub success result.
type Router struct {
	endpoint   *EndpointClient
	send       SendFunc
	log        *transcript.Store
	logger     *slog.Logger
	onReveal   func(component string, params map[string]any)
	onTransfer func(agentName string)
}

// RouterOptions configure a Router. Endpoint, Send, and Transcript are
// required; the callbacks are optional.
type RouterOptions struct {
	Endpoint   *EndpointClient
	Send       SendFunc
	Transcript *transcript.Store
	Logger     *slog.Logger

	// OnReveal fires when a routed UI tool succeeds, with the component
	// identifier and the parameters to render it with.
	OnReveal func(component string, params map[string]any)

	// OnTransfer fires when the hand-off tool succeeds, with the
	// destination agent name. The owner is expected to re-run its
	// agent-change sequence.
	OnTransfer func(agentName string)
}

// NewRouter builds a Router from opts.
func NewRouter(opts RouterOptions) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		endpoint:   opts.Endpoint,
		send:       opts.Send,
		log:        opts.Transcript,
		logger:     logger,
		onReveal:   opts.OnReveal,
		onTransfer: opts.OnTransfer,
	}
}

// Dispatch resolves one tool call against the active agent. All failure
// modes are absorbed here: endpoint failures produce a synthetic failure
// output so the model can recover, and send failures after a disconnect are
// logged and dropped.
func (r *Router) Dispatch(ctx context.Context, call Call, agent agents.Definition) {
	args := parseArguments(call.Arguments, r.logger)
	r.log.AddBreadcrumb("function call: "+call.Name, args)

	switch {
	case routedTools[call.Name]:
		r.dispatchRouted(ctx, call, args)
	case agent.ToolLogic[call.Name] != nil:
		r.dispatchLocal(ctx, call, args, agent.ToolLogic[call.Name])
	default:
		r.dispatchFallback(call)
	}
}

func (r *Router) dispatchRouted(ctx context.Context, call Call, args map[string]any) {
	result, err := r.endpoint.Execute(ctx, call.Name, args)
	if err != nil {
		r.logger.Error("tool endpoint call failed", "tool", call.Name, "call_id", call.CallID, "error", err)
		failure := map[string]any{"success": false, "error": err.Error()}
		r.log.AddBreadcrumb("function call failed: "+call.Name, failure)
		r.emitOutput(call, failure)
		return
	}

	// A routed result must carry success=true. An absent or
	// non-boolean flag counts as failure.
	if success, _ := result["success"].(bool); !success {
		r.logger.Warn("tool endpoint reported failure", "tool", call.Name, "call_id", call.CallID, "result", result)
		r.log.AddBreadcrumb("function call failed: "+call.Name, result)
		r.emitOutput(call, result)
		return
	}

	if component, ok := uiRevealTools[call.Name]; ok && r.onReveal != nil {
		if ui, ok := result["displayUI"].(string); ok && ui != "" {
			component = ui
		}
		params := args
		if echoed, ok := result["params"].(map[string]any); ok {
			params = echoed
		}
		r.onReveal(component, params)
	}

	if call.Name == agents.TransferToolName && r.onTransfer != nil {
		if dest, ok := result["transfer_to"].(string); ok && dest != "" {
			r.onTransfer(dest)
		}
	}

	output := any(result)
	if call.Name == ToolGenerateVirtualCard {
		output = map[string]any{"name": call.Name, "arguments": result}
	}

	r.log.AddBreadcrumb("function call: "+call.Name+" response", result)
	r.emitOutput(call, output)
	if call.Name == ToolGenerateVirtualCard {
		r.emit(realtime.ResponseCreate())
	}
}

func (r *Router) dispatchLocal(ctx context.Context, call Call, args map[string]any, logic agents.ToolLogic) {
	result, err := logic(ctx, args, r.log.Items())
	if err != nil {
		r.logger.Error("local tool logic failed", "tool", call.Name, "call_id", call.CallID, "error", err)
		result = map[string]any{"success": false, "error": err.Error()}
	}
	r.log.AddBreadcrumb("function call result: "+call.Name, result)
	r.emitOutput(call, result)
	r.emit(realtime.ResponseCreate())
}

func (r *Router) dispatchFallback(call Call) {
	r.logger.Info("no handler for tool, using fallback", "tool", call.Name, "call_id", call.CallID)
	result := map[string]any{"result": true}
	r.log.AddBreadcrumb("function call fallback: "+call.Name, result)
	r.emitOutput(call, result)
	r.emit(realtime.ResponseCreate())
}

// emitOutput serializes result and sends a function-call-output event
// correlated to the originating call.
func (r *Router) emitOutput(call Call, result any) {
	payload, err := json.Marshal(result)
	if err != nil {
		r.logger.Error("encode tool output", "tool", call.Name, "error", err)
		return
	}
	r.emit(realtime.FunctionCallOutput(call.CallID, string(payload)))
}

// emit sends an event, tolerating a transport that closed while the tool
// call was in flight.
func (r *Router) emit(event any) {
	if err := r.send(event); err != nil {
		r.logger.Warn("send after tool call failed", "error", err)
	}
}

func parseArguments(raw string, logger *slog.Logger) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		logger.Warn("malformed tool call arguments", "error", err)
		return map[string]any{}
	}
	if args == nil {
		args = map[string]any{}
	}
	return args
}
