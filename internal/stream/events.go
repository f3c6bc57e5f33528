package stream

import (
	"encoding/json"
	"fmt"
)

// Wire event names carried by the model stream.
const (
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageStop       = "message_stop"
	EventError             = "error"
)

// Delta subtypes of content_block_delta frames.
const (
	DeltaTypeText      = "text_delta"
	DeltaTypeInputJSON = "input_json_delta"
)

// Block types of content_block_start frames.
const (
	BlockTypeText    = "text"
	BlockTypeToolUse = "tool_use"
)

// Event is the closed union of decoded wire events. One arm exists per
// named SSE event and per delta subtype; consumers dispatch with a single
// type switch.
type Event interface {
	wireEvent()
}

// BlockStartEvent opens a content block at a position.
type BlockStartEvent struct {
	Index     int
	BlockType string
	ID        string
	Name      string
	Text      string
}

// TextDeltaEvent grows the text block at a position.
type TextDeltaEvent struct {
	Index int
	Text  string
}

// InputJSONDeltaEvent carries one fragment of tool-argument JSON for the
// tool_use block at a position.
type InputJSONDeltaEvent struct {
	Index       int
	PartialJSON string
}

// BlockStopEvent closes the content block at a position.
type BlockStopEvent struct {
	Index int
}

// MessageStopEvent ends the turn successfully.
type MessageStopEvent struct{}

// ErrorEvent is a stream-level failure reported by the endpoint.
type ErrorEvent struct {
	ErrType string
	Message string
}

func (BlockStartEvent) wireEvent()     {}
func (TextDeltaEvent) wireEvent()      {}
func (InputJSONDeltaEvent) wireEvent() {}
func (BlockStopEvent) wireEvent()      {}
func (MessageStopEvent) wireEvent()    {}
func (ErrorEvent) wireEvent()          {}

// envelope is the superset of fields any frame payload can carry.
type envelope struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
		Text string `json:"text"`
	} `json:"content_block"`
	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// DecodeEvent turns one wire frame into its typed event. The event name
// from the `event:` line wins; when absent the payload's type field is
// used. Names outside the known set decode to (nil, nil) and are skipped
// by the caller. A known name with a structurally deficient payload is an
// error; the caller treats it like any other malformed frame.
func DecodeEvent(name string, payload json.RawMessage) (Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode frame payload: %w", err)
	}
	if name == "" {
		name = env.Type
	}

	switch name {
	case EventContentBlockStart:
		if env.ContentBlock == nil {
			return nil, fmt.Errorf("content_block_start frame without content_block")
		}
		return BlockStartEvent{
			Index:     env.Index,
			BlockType: env.ContentBlock.Type,
			ID:        env.ContentBlock.ID,
			Name:      env.ContentBlock.Name,
			Text:      env.ContentBlock.Text,
		}, nil

	case EventContentBlockDelta:
		if env.Delta == nil {
			return nil, fmt.Errorf("content_block_delta frame without delta")
		}
		switch env.Delta.Type {
		case DeltaTypeText:
			return TextDeltaEvent{Index: env.Index, Text: env.Delta.Text}, nil
		case DeltaTypeInputJSON:
			return InputJSONDeltaEvent{Index: env.Index, PartialJSON: env.Delta.PartialJSON}, nil
		default:
			// Unknown delta subtype, nothing to apply.
			return nil, nil
		}

	case EventContentBlockStop:
		return BlockStopEvent{Index: env.Index}, nil

	case EventMessageStop:
		return MessageStopEvent{}, nil

	case EventError:
		ev := ErrorEvent{}
		if env.Error != nil {
			ev.ErrType = env.Error.Type
			ev.Message = env.Error.Message
		}
		return ev, nil

	default:
		// message_start, message_delta, ping and future additions carry
		// nothing the assembler needs.
		return nil, nil
	}
}
