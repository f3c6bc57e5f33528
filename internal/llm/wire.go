package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hollisb/patter/internal/domain"
)

const (
	messagesPath     = "/v1/messages"
	anthropicVersion = "2023-06-01"

	// maxErrorBody caps how much of a failed response we read back.
	maxErrorBody = 64 * 1024
)

// messageRequest is the request body for the streaming messages endpoint.
type messageRequest struct {
	Model      string        `json:"model"`
	MaxTokens  int           `json:"max_tokens"`
	Messages   []wireMessage `json:"messages"`
	Tools      []wireTool    `json:"tools,omitempty"`
	ToolChoice *toolChoice   `json:"tool_choice,omitempty"`
	Stream     bool          `json:"stream"`
}

// wireMessage is a single conversational turn on the wire. Content blocks
// share the domain representation, so assistant blocks echo back to the
// model exactly as they were assembled.
type wireMessage struct {
	Role    string                `json:"role"`
	Content []domain.ContentBlock `json:"content"`
}

// wireTool advertises one registered tool to the model.
type wireTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// toolChoice selects the model's tool-use mode.
type toolChoice struct {
	Type string `json:"type"`
}

// toWireMessages converts a conversation to the wire format. The endpoint
// only knows user and assistant roles, so tool-result turns are sent as
// user messages carrying tool_result blocks.
func toWireMessages(conv domain.Conversation) []wireMessage {
	out := make([]wireMessage, 0, len(conv))
	for _, msg := range conv {
		role := string(msg.Role)
		if msg.Role == domain.RoleTool {
			role = string(domain.RoleUser)
		}
		out = append(out, wireMessage{Role: role, Content: msg.Content})
	}
	return out
}

// toWireTools converts tool manifests to the wire tool list. Examples and
// categories are local metadata and are not sent to the model.
func toWireTools(manifests []domain.ToolManifest) []wireTool {
	if len(manifests) == 0 {
		return nil
	}
	out := make([]wireTool, 0, len(manifests))
	for _, m := range manifests {
		schema := m.InputSchema
		if len(schema) == 0 {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		out = append(out, wireTool{
			Name:        m.Name,
			Description: m.Description,
			InputSchema: schema,
		})
	}
	return out
}

// errorResponse models the endpoint's error payload.
type errorResponse struct {
	Error errorBody `json:"error"`
}

// errorBody drills into the API error object.
type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// APIError surfaces a non-success endpoint response with HTTP metadata.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("model API error [%d]: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model API error [%d]: %s (type: %s)", e.StatusCode, e.Message, e.Type)
}

// readAPIError drains a failed response into an APIError.
func readAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("model API error [%d]: read response: %w", resp.StatusCode, err)
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Type: errResp.Error.Type, Message: errResp.Error.Message}
	}
	msg := string(body)
	if msg == "" {
		msg = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
