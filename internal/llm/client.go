// Package llm drives single streamed turns against the model endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hollisb/patter/internal/config"
	"github.com/hollisb/patter/internal/domain"
	"github.com/hollisb/patter/internal/logger"
	"github.com/hollisb/patter/internal/stream"
)

var log = logger.Named("llm")

// Client issues streaming requests to the model endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
}

// NewClient creates a model client from configuration. It fails before any
// network call when credentials are missing.
func NewClient(cfg *config.Config) (*Client, error) {
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, err
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
	}, nil
}

// StreamTurn sends the conversation plus the tool manifest and consumes the
// streamed response for one assistant turn. Text deltas and tool-requested
// notifications are forwarded to obs as they arrive. It returns the finished
// assistant message and the ordered tool calls the model requested.
//
// A non-success status, an empty response body, or an error wire event fails
// the turn. No retry is attempted here.
func (c *Client) StreamTurn(ctx context.Context, conv domain.Conversation, tools []domain.ToolManifest, obs stream.Observer) (domain.Message, []domain.ToolCall, error) {
	payload := messageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  toWireMessages(conv),
		Tools:     toWireTools(tools),
		Stream:    true,
	}
	if len(payload.Tools) > 0 {
		payload.ToolChoice = &toolChoice{Type: "auto"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Message{}, nil, fmt.Errorf("marshal model request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return domain.Message{}, nil, fmt.Errorf("create model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Anthropic-Version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Message{}, nil, fmt.Errorf("send model request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Message{}, nil, readAPIError(resp)
	}

	asm := stream.NewAssembler(obs)
	dec := stream.NewDecoder(resp.Body)

	err = dec.Scan(ctx, func(event string, payload json.RawMessage) error {
		ev, err := stream.DecodeEvent(event, payload)
		if err != nil {
			log.Warnf("skipping undecodable %q frame: %v", event, err)
			return nil
		}
		if ev == nil {
			return nil
		}
		if err := asm.Apply(ev); err != nil {
			return err
		}
		if asm.Done() {
			return stream.ErrStopScan
		}
		return nil
	})
	if err != nil {
		return domain.Message{}, nil, err
	}

	if dec.Frames() == 0 && !dec.Terminated() {
		return domain.Message{}, nil, fmt.Errorf("model returned an empty response body")
	}

	return asm.Message(), asm.Calls(), nil
}
