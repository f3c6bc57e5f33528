package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hollisb/patter/internal/config"
	"github.com/hollisb/patter/internal/domain"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.APIKey = "test-key"
	cfg.BaseURL = baseURL
	cfg.Model = "test-model"
	cfg.MaxTokens = 64
	cfg.RequestTimeout = 2 * time.Second
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func userConversation(prompt string) domain.Conversation {
	return domain.Conversation{
		{Role: domain.RoleUser, Content: []domain.ContentBlock{domain.NewTextBlock(prompt)}},
	}
}

func testManifests() []domain.ToolManifest {
	return []domain.ToolManifest{
		{Name: "add_task", Description: "Add a task", InputSchema: json.RawMessage(`{"type":"object"}`)},
	}
}

type captureObserver struct {
	deltas []string
	notes  []string
}

func (c *captureObserver) TextDelta(text string) {
	c.deltas = append(c.deltas, text)
}

func (c *captureObserver) ToolRequested(id, name string) {
	c.notes = append(c.notes, "requested:"+name)
}

func (c *captureObserver) ToolCallFinalized(call domain.ToolCall) {
	c.notes = append(c.notes, "finalized:"+call.Name)
}

func TestStreamTurnAssemblesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Fatalf("unexpected X-API-Key header: %q", got)
		}
		if got := r.Header.Get("Anthropic-Version"); got == "" {
			t.Fatalf("missing Anthropic-Version header")
		}

		var req struct {
			Model      string `json:"model"`
			Stream     bool   `json:"stream"`
			ToolChoice *struct {
				Type string `json:"type"`
			} `json:"tool_choice"`
			Tools []struct {
				Name        string          `json:"name"`
				InputSchema json.RawMessage `json:"input_schema"`
			} `json:"tools"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request failed: %v", err)
		}
		if req.Model != "test-model" || !req.Stream {
			t.Fatalf("unexpected request: %+v", req)
		}
		if req.ToolChoice == nil || req.ToolChoice.Type != "auto" {
			t.Fatalf("expected tool_choice auto, got %+v", req.ToolChoice)
		}
		if len(req.Tools) != 1 || req.Tools[0].Name != "add_task" {
			t.Fatalf("unexpected tools: %+v", req.Tools)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		fmt.Fprint(w, "event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"text\",\"text\":\"\"}}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"Adding it.\"}}\n\n")
		fmt.Fprint(w, "event: content_block_stop\ndata: {\"type\":\"content_block_stop\",\"index\":0}\n\n")
		fmt.Fprint(w, "event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":1,\"content_block\":{\"type\":\"tool_use\",\"id\":\"tu_1\",\"name\":\"add_task\"}}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":1,\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"{\\\"title\\\":\\\"buy milk\\\"}\"}}\n\n")
		fmt.Fprint(w, "event: content_block_stop\ndata: {\"type\":\"content_block_stop\",\"index\":1}\n\n")
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	obs := &captureObserver{}
	msg, calls, err := client.StreamTurn(context.Background(), userConversation("add buy milk"), testManifests(), obs)
	if err != nil {
		t.Fatalf("StreamTurn failed: %v", err)
	}

	if msg.Role != domain.RoleAssistant || len(msg.Content) != 2 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Content[0].Text != "Adding it." {
		t.Fatalf("unexpected text block: %+v", msg.Content[0])
	}
	if len(calls) != 1 || calls[0].Name != "add_task" || string(calls[0].Input) != `{"title":"buy milk"}` {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	if len(obs.deltas) != 1 || obs.deltas[0] != "Adding it." {
		t.Fatalf("unexpected deltas: %v", obs.deltas)
	}
	if len(obs.notes) != 2 || obs.notes[0] != "requested:add_task" || obs.notes[1] != "finalized:add_task" {
		t.Fatalf("unexpected notifications: %v", obs.notes)
	}
}

func TestStreamTurnOmitsToolsWhenEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), "tool_choice") {
			t.Fatalf("tool_choice sent without tools: %s", body)
		}
		if strings.Contains(string(body), `"tools"`) {
			t.Fatalf("tools sent when none registered: %s", body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"message_stop\"}\n\n")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, _, err := client.StreamTurn(context.Background(), userConversation("hi"), nil, nil); err != nil {
		t.Fatalf("StreamTurn failed: %v", err)
	}
}

func TestStreamTurnMapsToolRoleToUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content []struct {
					Type      string `json:"type"`
					ToolUseID string `json:"tool_use_id"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request failed: %v", err)
		}
		if len(req.Messages) != 3 {
			t.Fatalf("expected 3 wire messages, got %d", len(req.Messages))
		}
		if req.Messages[1].Role != "assistant" {
			t.Fatalf("unexpected role: %s", req.Messages[1].Role)
		}
		last := req.Messages[2]
		if last.Role != "user" {
			t.Fatalf("tool message should go on the wire as user, got %s", last.Role)
		}
		if len(last.Content) != 1 || last.Content[0].Type != "tool_result" || last.Content[0].ToolUseID != "tu_1" {
			t.Fatalf("unexpected tool result content: %+v", last.Content)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"message_stop\"}\n\n")
	}))
	defer server.Close()

	conv := domain.Conversation{
		{Role: domain.RoleUser, Content: []domain.ContentBlock{domain.NewTextBlock("list tasks")}},
		{Role: domain.RoleAssistant, Content: []domain.ContentBlock{domain.NewToolUseBlock("tu_1", "list_tasks", json.RawMessage(`{}`))}},
		{Role: domain.RoleTool, Content: []domain.ContentBlock{domain.NewToolResultBlock("tu_1", `{"result":[]}`)}},
	}
	client := newTestClient(t, server.URL)
	if _, _, err := client.StreamTurn(context.Background(), conv, nil, nil); err != nil {
		t.Fatalf("StreamTurn failed: %v", err)
	}
}

func TestStreamTurnAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, _, err := client.StreamTurn(context.Background(), userConversation("hi"), nil, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Type != "rate_limit_error" || apiErr.Message != "slow down" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
}

func TestStreamTurnEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, _, err := client.StreamTurn(context.Background(), userConversation("hi"), nil, nil)
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty body error, got %v", err)
	}
}

func TestStreamTurnWireErrorEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"text\",\"text\":\"\"}}\n\n")
		fmt.Fprint(w, "event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"try later\"}}\n\n")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, _, err := client.StreamTurn(context.Background(), userConversation("hi"), nil, nil)
	if err == nil || !strings.Contains(err.Error(), "overloaded_error") {
		t.Fatalf("expected wire error, got %v", err)
	}
}

func TestStreamTurnEOFWithoutMessageStop(t *testing.T) {
	// A stream that just ends is a complete turn; only a fully empty body
	// fails.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"text\",\"text\":\"\"}}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"partial\"}}\n\n")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	msg, calls, err := client.StreamTurn(context.Background(), userConversation("hi"), nil, nil)
	if err != nil {
		t.Fatalf("StreamTurn failed: %v", err)
	}
	if len(msg.Content) != 1 || msg.Content[0].Text != "partial" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if len(calls) != 0 {
		t.Fatalf("unexpected calls: %+v", calls)
	}
}

func TestNewClientMissingKey(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = ""
	if _, err := NewClient(cfg); !errors.Is(err, config.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
