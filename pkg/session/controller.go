// Package session owns the lifecycle of one realtime conversation:
// connecting the transport, pushing agent configuration, gating
// push-to-talk input, and interpreting inbound protocol events into
// transcript mutations and tool dispatches.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fleetvoice/fleetvoice/pkg/agents"
	"github.com/fleetvoice/fleetvoice/pkg/core"
	"github.com/fleetvoice/fleetvoice/pkg/realtime"
	"github.com/fleetvoice/fleetvoice/pkg/tools"
	"github.com/fleetvoice/fleetvoice/pkg/transcript"
)

// Fixed session configuration values pushed with every session update.
const (
	sessionVoice              = "coral"
	sessionAudioFormat        = "pcm16"
	sessionTranscriptionModel = "whisper-1"
)

// Status is the connection state of a session.
type Status string

const (
	StatusDisconnected Status = "DISCONNECTED"
	StatusConnecting   Status = "CONNECTING"
	StatusConnected    Status = "CONNECTED"

	// StatusTransferring is reported while an agent hand-off sequence
	// runs. It exists for UI feedback only and does not gate protocol
	// behavior.
	StatusTransferring Status = "TRANSFERRING"
)

// Transport is the subset of realtime.Conn the controller drives.
type Transport interface {
	Events() <-chan realtime.ServerEvent
	Send(event any) error
	Open() bool
	Close() error
}

// CredentialFunc fetches a short-lived client credential for one
// connection attempt.
type CredentialFunc func(ctx context.Context) (string, error)

// DialFunc opens a realtime transport with the given credential.
type DialFunc func(ctx context.Context, credential string) (Transport, error)

// Options configure a Controller. Registry, SetKey, Credential, and
// Endpoint are required; the rest default sensibly.
type Options struct {
	Registry   *agents.Registry
	SetKey     string
	Credential CredentialFunc
	Endpoint   *tools.EndpointClient

	// Dial defaults to realtime.Dial against the public backend.
	Dial DialFunc

	// Transcript defaults to a fresh store.
	Transcript *transcript.Store

	Logger *slog.Logger

	// PushToTalk sets the initial input mode.
	PushToTalk bool

	// OnStatus fires on every status change.
	OnStatus func(Status)

	// OnAgentResponse receives streamed assistant text for live
	// chat-bubble aggregation.
	OnAgentResponse func(text string)

	// OnTyping signals whether the agent is producing a response.
	OnTyping func(typing bool)

	// OnReveal fires when a routed UI tool succeeds.
	OnReveal func(component string, params map[string]any)
}

// Controller runs the session state machine. One inbound event stream
// is consumed serially; public operations are safe for concurrent use.
type Controller struct {
	set        agents.Set
	credential CredentialFunc
	dial       DialFunc
	log        *transcript.Store
	router     *tools.Router
	logger     *slog.Logger
	now        func() time.Time

	onStatus        func(Status)
	onAgentResponse func(string)
	onTyping        func(bool)

	mu             sync.Mutex
	status         Status
	conn           Transport
	activeAgent    string
	processedAgent string
	pushToTalk     bool
	pttSpeaking    bool
}

// New builds a Controller over the named agent set. The set's first
// agent is active initially.
func New(opts Options) (*Controller, error) {
	if opts.Registry == nil {
		return nil, core.NewInvalidRequestError("session: registry is required")
	}
	set, ok := opts.Registry.Set(opts.SetKey)
	if !ok {
		return nil, core.NewNotFoundError(fmt.Sprintf("session: unknown agent set %q", opts.SetKey))
	}
	def, ok := set.Default()
	if !ok {
		return nil, core.NewInvalidRequestError(fmt.Sprintf("session: agent set %q is empty", opts.SetKey))
	}
	if opts.Credential == nil {
		return nil, core.NewInvalidRequestError("session: credential fetcher is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	log := opts.Transcript
	if log == nil {
		log = transcript.NewStore()
	}
	dial := opts.Dial
	if dial == nil {
		dial = func(ctx context.Context, credential string) (Transport, error) {
			return realtime.Dial(ctx, credential, realtime.DialOptions{})
		}
	}

	c := &Controller{
		set:             set,
		credential:      opts.Credential,
		dial:            dial,
		log:             log,
		logger:          logger,
		now:             time.Now,
		onStatus:        opts.OnStatus,
		onAgentResponse: opts.OnAgentResponse,
		onTyping:        opts.OnTyping,
		status:          StatusDisconnected,
		activeAgent:     def.Name,
		pushToTalk:      opts.PushToTalk,
	}
	c.router = tools.NewRouter(tools.RouterOptions{
		Endpoint:   opts.Endpoint,
		Send:       c.send,
		Transcript: log,
		Logger:     logger,
		OnReveal:   opts.OnReveal,
		OnTransfer: func(agentName string) {
			if err := c.SelectAgent(agentName); err != nil {
				logger.Warn("transfer to unknown agent", "agent", agentName, "error", err)
			}
		},
	})
	return c, nil
}

// Transcript returns the session's transcript store.
func (c *Controller) Transcript() *transcript.Store {
	return c.log
}

// Status returns the current connection status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ActiveAgent returns the name of the currently selected agent.
func (c *Controller) ActiveAgent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeAgent
}

// AgentNames lists the agents available in this session's set.
func (c *Controller) AgentNames() []string {
	return c.set.Names()
}

// PushToTalk reports whether push-to-talk input mode is active.
func (c *Controller) PushToTalk() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushToTalk
}

// Connect fetches a credential, opens the transport, and starts event
// consumption. The session reaches Connected when the backend confirms
// session establishment. Connect is a no-op if the session is not
// Disconnected.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.status = StatusConnecting
	c.mu.Unlock()
	c.notifyStatus(StatusConnecting)

	credential, err := c.credential(ctx)
	if err == nil && credential == "" {
		err = core.NewAuthenticationError("no ephemeral credential provided")
	}
	if err != nil {
		c.logger.Error("credential fetch failed", "error", err)
		c.setStatus(StatusDisconnected)
		return err
	}

	conn, err := c.dial(ctx, credential)
	if err != nil {
		c.logger.Error("realtime connect failed", "error", err)
		c.setStatus(StatusDisconnected)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.run(conn)
	return nil
}

// run consumes the transport's event stream serially until it closes.
func (c *Controller) run(conn Transport) {
	for event := range conn.Events() {
		c.handleServerEvent(event)
	}
	c.mu.Lock()
	stale := c.conn != conn
	c.mu.Unlock()
	if !stale {
		c.logger.Info("realtime event stream ended")
		c.Disconnect()
	}
}

// Disconnect closes the transport, stops media tracks, and resets the
// session to Disconnected. Safe to call repeatedly.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	changed := c.status != StatusDisconnected
	c.status = StatusDisconnected
	c.processedAgent = ""
	c.pttSpeaking = false
	c.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			c.logger.Warn("transport close", "error", err)
		}
	}
	if changed {
		c.notifyStatus(StatusDisconnected)
	}
}

// SelectAgent switches the active agent by name. While Connected this
// runs the hand-off sequence: separator, breadcrumb, session update,
// and a synthesized greeting. Selecting the already-active agent is a
// no-op.
func (c *Controller) SelectAgent(name string) error {
	if _, ok := c.set.Agent(name); !ok {
		return core.NewNotFoundError(fmt.Sprintf("unknown agent %q", name))
	}

	c.mu.Lock()
	c.activeAgent = name
	connected := c.status == StatusConnected
	pending := c.processedAgent != name
	if connected && pending {
		c.status = StatusTransferring
	}
	c.mu.Unlock()

	if !connected || !pending {
		return nil
	}

	c.notifyStatus(StatusTransferring)
	c.processAgentChange()

	c.mu.Lock()
	if c.status == StatusTransferring {
		c.status = StatusConnected
	}
	c.mu.Unlock()
	c.notifyStatus(StatusConnected)
	return nil
}

// processAgentChange runs the idempotent hand-off sequence for the
// active agent. The processed marker is claimed under the same lock as
// the check so concurrent hand-offs to the same agent run the sequence
// exactly once.
func (c *Controller) processAgentChange() {
	c.mu.Lock()
	name := c.activeAgent
	if c.processedAgent == name {
		c.mu.Unlock()
		return
	}
	c.processedAgent = name
	c.mu.Unlock()

	agent, ok := c.set.Agent(name)
	if !ok {
		return
	}

	c.log.AddSeparator("Connected to " + name)
	c.log.AddBreadcrumbUnique("Agent: "+name, map[string]any{
		"description": agent.PublicDescription,
	})
	c.updateSession(true)
}

// updateSession pushes the full session configuration for the active
// agent. When trigger is set, a hidden greeting prompt is synthesized
// afterward to elicit an immediate response.
func (c *Controller) updateSession(trigger bool) {
	c.mu.Lock()
	name := c.activeAgent
	ptt := c.pushToTalk
	c.mu.Unlock()

	agent, ok := c.set.Agent(name)
	if !ok {
		return
	}

	var turnDetection *realtime.TurnDetection
	if !ptt {
		turnDetection = realtime.ServerVAD()
	}

	c.sendLogged(realtime.InputAudioBufferClear())
	c.sendLogged(realtime.SessionUpdate(realtime.SessionConfig{
		Modalities:              []string{"text", "audio"},
		Instructions:            agent.Instructions,
		Voice:                   sessionVoice,
		InputAudioFormat:        sessionAudioFormat,
		OutputAudioFormat:       sessionAudioFormat,
		InputAudioTranscription: &realtime.TranscriptionConfig{Model: sessionTranscriptionModel},
		TurnDetection:           turnDetection,
		Tools:                   agent.Tools,
	}))

	if trigger {
		c.sendSimulatedUserMessage("hi")
	}
}

// sendSimulatedUserMessage injects a hidden user utterance and
// requests a response, so a newly activated agent greets immediately.
func (c *Controller) sendSimulatedUserMessage(text string) {
	id := ulid.Make().String()
	c.log.AddHiddenMessage(id, realtime.RoleUser, text)
	c.sendLogged(realtime.UserMessage(id, text))
	c.sendLogged(realtime.ResponseCreate())
}

// SetPushToTalk switches the input mode and, while Connected,
// re-pushes the session configuration so the backend's turn-detection
// policy follows.
func (c *Controller) SetPushToTalk(enabled bool) {
	c.mu.Lock()
	c.pushToTalk = enabled
	connected := c.status == StatusConnected
	c.mu.Unlock()

	if connected {
		c.updateSession(false)
	}
}

// TalkButtonDown begins a push-to-talk utterance: it cancels any
// in-flight assistant speech and clears the input audio buffer.
// Rejected unless Connected with an open channel.
func (c *Controller) TalkButtonDown() {
	c.mu.Lock()
	ready := c.status == StatusConnected && c.conn != nil && c.conn.Open()
	if ready {
		c.pttSpeaking = true
	}
	c.mu.Unlock()
	if !ready {
		return
	}

	c.cancelAssistantSpeech()
	c.sendLogged(realtime.InputAudioBufferClear())
}

// TalkButtonUp ends a push-to-talk utterance: it commits the input
// audio buffer and requests a response. A no-op without a preceding
// TalkButtonDown.
func (c *Controller) TalkButtonUp() {
	c.mu.Lock()
	ready := c.status == StatusConnected && c.conn != nil && c.conn.Open() && c.pttSpeaking
	c.pttSpeaking = false
	c.mu.Unlock()
	if !ready {
		return
	}

	c.sendLogged(realtime.InputAudioBufferCommit())
	c.sendLogged(realtime.ResponseCreate())
}

// SendUserText sends a typed user message and requests a response.
// Any in-flight assistant speech is cancelled first.
func (c *Controller) SendUserText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	ready := c.status == StatusConnected && c.conn != nil && c.conn.Open()
	c.mu.Unlock()
	if !ready {
		return core.NewTransportError("session is not connected")
	}

	c.cancelAssistantSpeech()
	c.sendLogged(realtime.UserMessage("", text))
	c.sendLogged(realtime.ResponseCreate())
	return nil
}

// cancelAssistantSpeech interrupts an in-progress assistant utterance
// by truncating it at the wall-clock elapsed audio position and
// cancelling the response. No-op when there is nothing to cancel.
func (c *Controller) cancelAssistantSpeech() {
	last, ok := c.log.LastAssistantMessage()
	if !ok {
		c.logger.Debug("no assistant message to cancel")
		return
	}
	if last.Status == transcript.StatusDone {
		return
	}

	elapsed := c.now().Sub(last.CreatedAt).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	c.sendLogged(realtime.TruncateItem(last.ID, elapsed))
	c.sendLogged(realtime.ResponseCancel())
}

// send delivers an event over the current transport. It reports a
// transport error when the channel is not open; callers decide whether
// that is fatal.
func (c *Controller) send(event any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return realtime.ErrConnClosed
	}
	return conn.Send(event)
}

// sendLogged sends an event, downgrading send-on-closed-channel to a
// log line per the error policy: the UI gates affordances on status,
// so a straggler send is noise rather than a failure.
func (c *Controller) sendLogged(event any) {
	if err := c.send(event); err != nil {
		c.logger.Warn("send failed", "error", err)
	}
}

func (c *Controller) setStatus(status Status) {
	c.mu.Lock()
	changed := c.status != status
	c.status = status
	c.mu.Unlock()
	if changed {
		c.notifyStatus(status)
	}
}

func (c *Controller) notifyStatus(status Status) {
	if c.onStatus != nil {
		c.onStatus(status)
	}
}
