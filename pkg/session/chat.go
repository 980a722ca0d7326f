package session

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Chat senders.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// ChatMessage is one bubble in the live chat view.
type ChatMessage struct {
	ID        string
	Sender    string
	Text      string
	Timestamp time.Time
}

// ChatProjection aggregates streamed assistant text into chat bubbles.
// It is an independent projection over the session's response stream:
// it keeps its own accumulation buffer and never touches the
// transcript store's state. Wire AgentResponse to Options.OnAgentResponse
// and SetTyping to Options.OnTyping.
type ChatProjection struct {
	mu        sync.Mutex
	messages  []ChatMessage
	buffer    string
	currentID string
	observer  func()
	now       func() time.Time
}

func NewChatProjection() *ChatProjection {
	return &ChatProjection{now: time.Now}
}

// SetObserver registers a callback invoked after every visible change.
// The callback runs outside the projection lock.
func (p *ChatProjection) SetObserver(fn func()) {
	p.mu.Lock()
	p.observer = fn
	p.mu.Unlock()
}

func (p *ChatProjection) notify() {
	p.mu.Lock()
	fn := p.observer
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// AgentResponse accumulates one streamed text fragment. The first
// fragment of a turn opens a new bot bubble; later fragments update it
// in place.
func (p *ChatProjection) AgentResponse(text string) {
	p.mu.Lock()
	p.buffer += text
	if p.currentID == "" {
		p.currentID = ulid.Make().String()
		p.messages = append(p.messages, ChatMessage{
			ID:        p.currentID,
			Sender:    SenderBot,
			Text:      text,
			Timestamp: p.now(),
		})
	} else {
		p.updateCurrentLocked()
	}
	p.mu.Unlock()
	p.notify()
}

// SetTyping tracks the agent-is-responding signal. The falling edge
// flushes the accumulation buffer into the current bubble and closes
// it, so the next response opens a fresh one.
func (p *ChatProjection) SetTyping(typing bool) {
	if typing {
		return
	}
	p.mu.Lock()
	if p.currentID != "" && p.buffer != "" {
		p.updateCurrentLocked()
	}
	p.buffer = ""
	p.currentID = ""
	p.mu.Unlock()
	p.notify()
}

func (p *ChatProjection) updateCurrentLocked() {
	for i := range p.messages {
		if p.messages[i].ID == p.currentID {
			p.messages[i].Text = p.buffer
			return
		}
	}
}

// AddUserMessage appends a user bubble for locally sent text.
func (p *ChatProjection) AddUserMessage(text string) {
	p.mu.Lock()
	p.messages = append(p.messages, ChatMessage{
		ID:        ulid.Make().String(),
		Sender:    SenderUser,
		Text:      text,
		Timestamp: p.now(),
	})
	p.mu.Unlock()
	p.notify()
}

// Messages returns an ordered snapshot of the chat.
func (p *ChatProjection) Messages() []ChatMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ChatMessage(nil), p.messages...)
}

// Reset clears the chat, e.g. when a session ends.
func (p *ChatProjection) Reset() {
	p.mu.Lock()
	p.messages = nil
	p.buffer = ""
	p.currentID = ""
	p.mu.Unlock()
	p.notify()
}
