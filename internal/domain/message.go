// Package domain defines the core domain models for the orchestrator.
package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentBlockType discriminates the content block union.
type ContentBlockType string

const (
	ContentBlockTypeText       ContentBlockType = "text"
	ContentBlockTypeToolUse    ContentBlockType = "tool_use"
	ContentBlockTypeToolResult ContentBlockType = "tool_result"
)

// ContentBlock is one positioned unit of message content. Type selects
// which of the remaining fields are meaningful: Text for text blocks,
// ID/Name/Input for tool_use blocks, ToolUseID/Content for tool_result
// blocks.
type ContentBlock struct {
	Type      ContentBlockType `json:"type"`
	Text      string           `json:"text,omitempty"`
	ID        string           `json:"id,omitempty"`
	Name      string           `json:"name,omitempty"`
	Input     json.RawMessage  `json:"input,omitempty"`
	ToolUseID string           `json:"tool_use_id,omitempty"`
	Content   string           `json:"content,omitempty"`
}

// NewTextBlock returns a text content block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: ContentBlockTypeText, Text: text}
}

// NewToolUseBlock returns a tool_use content block.
func NewToolUseBlock(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Type: ContentBlockTypeToolUse, ID: id, Name: name, Input: input}
}

// NewToolResultBlock returns a tool_result content block referencing the
// originating tool_use id.
func NewToolResultBlock(toolUseID, content string) ContentBlock {
	return ContentBlock{Type: ContentBlockTypeToolResult, ToolUseID: toolUseID, Content: content}
}

// Message is one conversation entry. Messages are immutable once appended;
// the conversation is append-only.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Conversation is the ordered message history of one session.
type Conversation = []Message

// Session is the caller-held exchange state. The caller is the sole durable
// owner; the orchestrator never persists it.
type Session struct {
	ID       string       `json:"id"`
	Messages Conversation `json:"messages"`
}

// NewSession returns an empty session with a freshly generated id.
func NewSession() *Session {
	return &Session{ID: NewSessionID(), Messages: Conversation{}}
}

// NewSessionID generates an opaque session identifier.
func NewSessionID() string {
	return "sess_" + uuid.New().String()[:8]
}
