package domain

import (
	"encoding/json"
	"time"
)

// EventType names an outbound event variant.
type EventType string

const (
	EventTypeMessage     EventType = "message"
	EventTypeDelta       EventType = "delta"
	EventTypeToolRequest EventType = "tool_request"
	EventTypeToolCall    EventType = "tool_call"
	EventTypeToolResult  EventType = "tool_result"
	EventTypeSession     EventType = "session"
	EventTypeError       EventType = "error"
	EventTypeDone        EventType = "done"
)

// EventBase carries the fields shared by every outbound event.
type EventBase struct {
	Type      EventType `json:"type"`
	Ts        int64     `json:"ts"` // Unix milliseconds
	SessionID string    `json:"session_id,omitempty"`
}

// Base returns the shared event fields. Embedding EventBase satisfies
// OutboundEvent for every concrete variant.
func (b EventBase) Base() EventBase { return b }

// OutboundEvent is the closed union of events the orchestrator emits.
// Exactly one DoneEvent or one ErrorEvent terminates the stream of one
// invocation.
type OutboundEvent interface {
	Base() EventBase
}

// MessageEvent reports a message appended to the conversation.
type MessageEvent struct {
	EventBase
	Message Message `json:"message"`
}

// DeltaEvent carries one increment of assistant prose as it streams in.
type DeltaEvent struct {
	EventBase
	Text string `json:"text"`
}

// ToolRequestEvent announces a tool_use block the moment it opens, before
// any argument JSON has arrived.
type ToolRequestEvent struct {
	EventBase
	ToolUseID string `json:"tool_use_id"`
	ToolName  string `json:"tool_name"`
}

// ToolCallEvent reports a tool call finalized with its parsed input.
type ToolCallEvent struct {
	EventBase
	ToolUseID string          `json:"tool_use_id"`
	ToolName  string          `json:"tool_name"`
	Input     json.RawMessage `json:"input"`
	Position  int             `json:"position"`
}

// ToolResultEvent reports the outcome of one tool invocation.
type ToolResultEvent struct {
	EventBase
	ToolUseID string `json:"tool_use_id"`
	ToolName  string `json:"tool_name"`
	OK        bool   `json:"ok"`
	Content   string `json:"content"`
}

// SessionEvent is the final snapshot of a successful exchange.
type SessionEvent struct {
	EventBase
	Session Session `json:"session"`
}

// ErrorEvent terminates a failed exchange. TurnsCompleted counts the model
// turns that finished before the failure.
type ErrorEvent struct {
	EventBase
	Message        string `json:"message"`
	TurnsCompleted int    `json:"turns_completed"`
}

// DoneEvent terminates a successful exchange.
type DoneEvent struct {
	EventBase
}

func newEventBase(t EventType, sessionID string) EventBase {
	return EventBase{Type: t, Ts: time.Now().UnixMilli(), SessionID: sessionID}
}

// NewMessageEvent builds a message-appended event.
func NewMessageEvent(sessionID string, msg Message) MessageEvent {
	return MessageEvent{EventBase: newEventBase(EventTypeMessage, sessionID), Message: msg}
}

// NewDeltaEvent builds an assistant-text-delta event.
func NewDeltaEvent(sessionID, text string) DeltaEvent {
	return DeltaEvent{EventBase: newEventBase(EventTypeDelta, sessionID), Text: text}
}

// NewToolRequestEvent builds a tool-requested event.
func NewToolRequestEvent(sessionID, toolUseID, toolName string) ToolRequestEvent {
	return ToolRequestEvent{
		EventBase: newEventBase(EventTypeToolRequest, sessionID),
		ToolUseID: toolUseID,
		ToolName:  toolName,
	}
}

// NewToolCallEvent builds a tool-call-finalized event.
func NewToolCallEvent(sessionID string, call ToolCall) ToolCallEvent {
	return ToolCallEvent{
		EventBase: newEventBase(EventTypeToolCall, sessionID),
		ToolUseID: call.ID,
		ToolName:  call.Name,
		Input:     call.Input,
		Position:  call.Position,
	}
}

// NewToolResultEvent builds a tool-result event.
func NewToolResultEvent(sessionID, toolUseID, toolName string, ok bool, content string) ToolResultEvent {
	return ToolResultEvent{
		EventBase: newEventBase(EventTypeToolResult, sessionID),
		ToolUseID: toolUseID,
		ToolName:  toolName,
		OK:        ok,
		Content:   content,
	}
}

// NewSessionEvent builds the terminal session-snapshot event.
func NewSessionEvent(sess Session) SessionEvent {
	return SessionEvent{EventBase: newEventBase(EventTypeSession, sess.ID), Session: sess}
}

// NewErrorEvent builds the terminal error event.
func NewErrorEvent(sessionID, message string, turnsCompleted int) ErrorEvent {
	return ErrorEvent{
		EventBase:      newEventBase(EventTypeError, sessionID),
		Message:        message,
		TurnsCompleted: turnsCompleted,
	}
}

// NewDoneEvent builds the terminal done event.
func NewDoneEvent(sessionID string) DoneEvent {
	return DoneEvent{EventBase: newEventBase(EventTypeDone, sessionID)}
}
