// Package realtime implements the wire protocol and websocket
// transport for a realtime conversational session: typed client and
// server events plus a Conn that owns the bidirectional channel.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Roles for conversation items.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes one callable capability advertised to the
// backend in a session update. It is never executed directly by the
// client.
type ToolSpec struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  ToolParameters `json:"parameters"`
}

// ToolParameters is the JSON-schema-shaped parameter declaration of a
// tool.
type ToolParameters struct {
	Type       string                  `json:"type"`
	Properties map[string]ToolProperty `json:"properties,omitempty"`
	Required   []string                `json:"required,omitempty"`
}

type ToolProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// TurnDetection configures server-driven voice activity detection.
// A nil TurnDetection in SessionConfig means push-to-talk: the client
// commits the input audio buffer explicitly.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
	CreateResponse    bool    `json:"create_response"`
}

// ServerVAD returns the fixed server-VAD policy used when push-to-talk
// is inactive.
func ServerVAD() *TurnDetection {
	return &TurnDetection{
		Type:              "server_vad",
		Threshold:         0.5,
		PrefixPaddingMS:   300,
		SilenceDurationMS: 200,
		CreateResponse:    true,
	}
}

// TranscriptionConfig names the input audio transcription model.
type TranscriptionConfig struct {
	Model string `json:"model"`
}

// SessionConfig is the full session configuration pushed on agent
// activation and on turn-detection mode changes.
type SessionConfig struct {
	Modalities              []string             `json:"modalities"`
	Instructions            string               `json:"instructions"`
	Voice                   string               `json:"voice"`
	InputAudioFormat        string               `json:"input_audio_format"`
	OutputAudioFormat       string               `json:"output_audio_format"`
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection       `json:"turn_detection"`
	Tools                   []ToolSpec           `json:"tools"`
}

// ContentPart is one piece of a conversation item's content.
type ContentPart struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// ConversationItem is the item payload of a conversation.item.create
// client event. Message items carry Role and Content; function call
// output items carry CallID and Output.
type ConversationItem struct {
	ID      string        `json:"id,omitempty"`
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

// Client events. Each carries its wire type in Type; use the
// constructors so the type strings stay in one place.

type SessionUpdateEvent struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

func SessionUpdate(cfg SessionConfig) SessionUpdateEvent {
	return SessionUpdateEvent{Type: "session.update", Session: cfg}
}

type ConversationItemCreateEvent struct {
	Type string           `json:"type"`
	Item ConversationItem `json:"item"`
}

// UserMessage builds a conversation.item.create for a user text
// message. id may be empty; the backend assigns one.
func UserMessage(id, text string) ConversationItemCreateEvent {
	return ConversationItemCreateEvent{
		Type: "conversation.item.create",
		Item: ConversationItem{
			ID:      id,
			Type:    "message",
			Role:    RoleUser,
			Content: []ContentPart{{Type: "input_text", Text: text}},
		},
	}
}

// FunctionCallOutput builds a conversation.item.create carrying a
// serialized tool result for the given call id.
func FunctionCallOutput(callID, output string) ConversationItemCreateEvent {
	return ConversationItemCreateEvent{
		Type: "conversation.item.create",
		Item: ConversationItem{
			Type:   "function_call_output",
			CallID: callID,
			Output: output,
		},
	}
}

type ResponseCreateEvent struct {
	Type string `json:"type"`
}

func ResponseCreate() ResponseCreateEvent {
	return ResponseCreateEvent{Type: "response.create"}
}

type ResponseCancelEvent struct {
	Type string `json:"type"`
}

func ResponseCancel() ResponseCancelEvent {
	return ResponseCancelEvent{Type: "response.cancel"}
}

type ConversationItemTruncateEvent struct {
	Type         string `json:"type"`
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	AudioEndMS   int64  `json:"audio_end_ms"`
}

// TruncateItem builds a conversation.item.truncate cutting the named
// item's audio at the given elapsed playback estimate.
func TruncateItem(itemID string, audioEndMS int64) ConversationItemTruncateEvent {
	return ConversationItemTruncateEvent{
		Type:       "conversation.item.truncate",
		ItemID:     itemID,
		AudioEndMS: audioEndMS,
	}
}

type InputAudioBufferClearEvent struct {
	Type string `json:"type"`
}

func InputAudioBufferClear() InputAudioBufferClearEvent {
	return InputAudioBufferClearEvent{Type: "input_audio_buffer.clear"}
}

type InputAudioBufferCommitEvent struct {
	Type string `json:"type"`
}

func InputAudioBufferCommit() InputAudioBufferCommitEvent {
	return InputAudioBufferCommitEvent{Type: "input_audio_buffer.commit"}
}

// ServerEvent is a decoded inbound protocol event.
type ServerEvent interface {
	serverEventType() string
}

type SessionCreatedEvent struct {
	Session struct {
		ID string `json:"id"`
	} `json:"session"`
}

func (e SessionCreatedEvent) serverEventType() string { return "session.created" }

type ItemCreatedEvent struct {
	Item struct {
		ID      string        `json:"id"`
		Role    string        `json:"role"`
		Content []ContentPart `json:"content"`
	} `json:"item"`
}

func (e ItemCreatedEvent) serverEventType() string { return "conversation.item.created" }

// BestEffortText prefers literal text, falls back to the transcript
// field, then to empty.
func (e ItemCreatedEvent) BestEffortText() string {
	if len(e.Item.Content) == 0 {
		return ""
	}
	if text := e.Item.Content[0].Text; text != "" {
		return text
	}
	return e.Item.Content[0].Transcript
}

type TranscriptionCompletedEvent struct {
	ItemID     string `json:"item_id"`
	Transcript string `json:"transcript"`
}

func (e TranscriptionCompletedEvent) serverEventType() string {
	return "conversation.item.input_audio_transcription.completed"
}

type TranscriptDeltaEvent struct {
	ItemID string `json:"item_id"`
	Delta  string `json:"delta"`
}

func (e TranscriptDeltaEvent) serverEventType() string { return "response.audio_transcript.delta" }

type ResponseStartEvent struct{}

func (e ResponseStartEvent) serverEventType() string { return "response.start" }

// ResponseOutputItem is one output item of a completed response.
// Function call items carry Name, CallID and raw Arguments.
type ResponseOutputItem struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	CallID    string `json:"call_id"`
	Arguments string `json:"arguments"`
}

type ResponseDoneEvent struct {
	Response struct {
		Output []ResponseOutputItem `json:"output"`
	} `json:"response"`
}

func (e ResponseDoneEvent) serverEventType() string { return "response.done" }

type OutputItemDoneEvent struct {
	Item struct {
		ID string `json:"id"`
	} `json:"item"`
}

func (e OutputItemDoneEvent) serverEventType() string { return "response.output_item.done" }

// UnknownEvent carries any inbound kind this client does not model.
// Consumers ignore it; it is never an error.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (e UnknownEvent) serverEventType() string { return e.Type }

// DecodeServerEvent decodes one inbound frame by its type envelope.
// Unrecognized kinds decode to UnknownEvent; a frame without a type,
// or one whose payload does not match its declared kind, is an error.
func DecodeServerEvent(data []byte) (ServerEvent, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, fmt.Errorf("event frame missing type")
	}

	switch typ {
	case "session.created":
		var event SessionCreatedEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("decode session.created: %w", err)
		}
		return event, nil
	case "conversation.item.created":
		var event ItemCreatedEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("decode conversation.item.created: %w", err)
		}
		return event, nil
	case "conversation.item.input_audio_transcription.completed":
		var event TranscriptionCompletedEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("decode transcription completed: %w", err)
		}
		return event, nil
	case "response.audio_transcript.delta":
		var event TranscriptDeltaEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("decode transcript delta: %w", err)
		}
		return event, nil
	case "response.start":
		return ResponseStartEvent{}, nil
	case "response.done":
		var event ResponseDoneEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("decode response.done: %w", err)
		}
		return event, nil
	case "response.output_item.done":
		var event OutputItemDoneEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("decode output item done: %w", err)
		}
		return event, nil
	default:
		return UnknownEvent{
			Type: typ,
			Raw:  append(json.RawMessage(nil), data...),
		}, nil
	}
}
