package session

import (
	"context"
	"time"

	"github.com/fleetvoice/fleetvoice/pkg/realtime"
	"github.com/fleetvoice/fleetvoice/pkg/tools"
	"github.com/fleetvoice/fleetvoice/pkg/transcript"
)

// Placeholder texts substituted when audio has no transcript yet, or
// none at all.
const (
	placeholderTranscribing = "[Transcribing...]"
	placeholderInaudible    = "[inaudible]"
)

// handleServerEvent translates one inbound protocol event into
// transcript mutations, UI signals, and tool dispatches. Events are
// processed synchronously in arrival order; unknown kinds are ignored.
func (c *Controller) handleServerEvent(event realtime.ServerEvent) {
	switch e := event.(type) {
	case realtime.SessionCreatedEvent:
		c.handleSessionCreated(e)
	case realtime.ItemCreatedEvent:
		c.handleItemCreated(e)
	case realtime.TranscriptionCompletedEvent:
		c.handleTranscriptionCompleted(e)
	case realtime.TranscriptDeltaEvent:
		c.handleTranscriptDelta(e)
	case realtime.ResponseStartEvent:
		c.notifyTyping(true)
	case realtime.ResponseDoneEvent:
		c.handleResponseDone(e)
	case realtime.OutputItemDoneEvent:
		if e.Item.ID != "" {
			c.log.SetStatus(e.Item.ID, transcript.StatusDone)
		}
	case realtime.UnknownEvent:
		c.logger.Debug("ignoring server event", "type", e.Type)
	}
}

func (c *Controller) handleSessionCreated(e realtime.SessionCreatedEvent) {
	if e.Session.ID == "" {
		return
	}
	c.setStatus(StatusConnected)
	c.log.AddBreadcrumb(
		"session.id: "+e.Session.ID+"\nStarted at: "+c.now().Format(time.RFC1123),
		nil,
	)
	// The active agent has not been announced on this connection yet.
	c.processAgentChange()
}

func (c *Controller) handleItemCreated(e realtime.ItemCreatedEvent) {
	id := e.Item.ID
	role := e.Item.Role
	if id == "" || role == "" {
		return
	}
	if c.log.Has(id) {
		return
	}

	text := e.BestEffortText()
	if role == realtime.RoleUser && text == "" {
		text = placeholderTranscribing
	}
	c.log.AddMessage(id, role, text)

	if role == realtime.RoleAssistant && text != "" {
		c.notifyAgentResponse(text)
	}
}

func (c *Controller) handleTranscriptionCompleted(e realtime.TranscriptionCompletedEvent) {
	if e.ItemID == "" {
		return
	}
	final := e.Transcript
	if final == "" || final == "\n" {
		final = placeholderInaudible
	}
	c.log.SetMessageText(e.ItemID, final)
}

func (c *Controller) handleTranscriptDelta(e realtime.TranscriptDeltaEvent) {
	if e.ItemID == "" {
		return
	}
	c.log.AppendMessageText(e.ItemID, e.Delta)
	if e.Delta != "" {
		c.notifyAgentResponse(e.Delta)
	}
}

// handleResponseDone clears the typing signal and dispatches every
// function call the response carries. Dispatch runs asynchronously so
// later inbound events keep flowing while a tool call awaits its
// endpoint.
func (c *Controller) handleResponseDone(e realtime.ResponseDoneEvent) {
	c.notifyTyping(false)

	agent, ok := c.set.Agent(c.ActiveAgent())
	if !ok {
		return
	}
	for _, item := range e.Response.Output {
		if item.Type != "function_call" || item.Name == "" || item.Arguments == "" {
			continue
		}
		call := tools.Call{
			Name:      item.Name,
			CallID:    item.CallID,
			Arguments: item.Arguments,
		}
		go c.router.Dispatch(context.Background(), call, agent)
	}
}

func (c *Controller) notifyAgentResponse(text string) {
	if c.onAgentResponse != nil {
		c.onAgentResponse(text)
	}
}

func (c *Controller) notifyTyping(typing bool) {
	if c.onTyping != nil {
		c.onTyping(typing)
	}
}
