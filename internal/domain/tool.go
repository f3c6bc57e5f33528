package domain

import "encoding/json"

// ToolCall is one finalized tool invocation request extracted from a turn.
// Produced when a tool_use block closes, consumed once by the tool step.
type ToolCall struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Input    json.RawMessage `json:"input"`
	Position int             `json:"position"`
}

// ToolManifest describes one registered tool to the model and to API
// consumers. InputSchema holds the serialized JSON schema of the tool's
// input object.
type ToolManifest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
	Examples    []string        `json:"examples,omitempty"`
	Categories  []string        `json:"categories,omitempty"`
}
