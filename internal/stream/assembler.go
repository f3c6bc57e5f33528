package stream

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hollisb/patter/internal/domain"
)

// Observer receives the assembler's externally visible notifications:
// text deltas the instant they arrive, tool_use blocks the instant they
// open (before any argument JSON is known), and tool calls the instant
// their input finalizes.
type Observer interface {
	TextDelta(text string)
	ToolRequested(id, name string)
	ToolCallFinalized(call domain.ToolCall)
}

type nopObserver struct{}

func (nopObserver) TextDelta(string)                  {}
func (nopObserver) ToolRequested(string, string)      {}
func (nopObserver) ToolCallFinalized(domain.ToolCall) {}

// pendingToolInput accumulates fragmented tool-argument JSON for one
// tool_use block between its start and stop events.
type pendingToolInput struct {
	id   string
	name string
	buf  strings.Builder
}

// Assembler builds one assistant message from decoded wire events.
// Content blocks are keyed by their wire position; positions may arrive
// sparsely and are ordered only when the message is finalized. An
// assembler serves a single turn.
type Assembler struct {
	obs     Observer
	blocks  map[int]*domain.ContentBlock
	pending map[int]*pendingToolInput
	calls   []domain.ToolCall
	done    bool
}

// NewAssembler returns an assembler notifying obs. A nil obs disables
// notifications.
func NewAssembler(obs Observer) *Assembler {
	if obs == nil {
		obs = nopObserver{}
	}
	return &Assembler{
		obs:     obs,
		blocks:  make(map[int]*domain.ContentBlock),
		pending: make(map[int]*pendingToolInput),
	}
}

// Done reports whether message_stop has been seen.
func (a *Assembler) Done() bool { return a.done }

// Calls returns the tool calls finalized so far, in finalization order.
func (a *Assembler) Calls() []domain.ToolCall { return a.calls }

// Apply advances the assembler by one wire event. Only an error wire
// event fails the turn; events referencing unknown positions are dropped.
func (a *Assembler) Apply(ev Event) error {
	switch e := ev.(type) {
	case BlockStartEvent:
		a.applyStart(e)
	case TextDeltaEvent:
		a.applyTextDelta(e)
	case InputJSONDeltaEvent:
		a.applyInputDelta(e)
	case BlockStopEvent:
		a.applyStop(e)
	case MessageStopEvent:
		a.done = true
	case ErrorEvent:
		return fmt.Errorf("model stream error [%s]: %s", e.ErrType, e.Message)
	}
	return nil
}

func (a *Assembler) applyStart(e BlockStartEvent) {
	if _, exists := a.blocks[e.Index]; exists {
		log.Warnf("duplicate content_block_start at position %d, replacing", e.Index)
		delete(a.pending, e.Index)
	}
	switch e.BlockType {
	case BlockTypeText:
		b := domain.NewTextBlock(e.Text)
		a.blocks[e.Index] = &b
	case BlockTypeToolUse:
		b := domain.NewToolUseBlock(e.ID, e.Name, nil)
		a.blocks[e.Index] = &b
		a.pending[e.Index] = &pendingToolInput{id: e.ID, name: e.Name}
		a.obs.ToolRequested(e.ID, e.Name)
	default:
		log.Warnf("unknown content block type %q at position %d", e.BlockType, e.Index)
	}
}

func (a *Assembler) applyTextDelta(e TextDeltaEvent) {
	b, ok := a.blocks[e.Index]
	if !ok || b.Type != domain.ContentBlockTypeText {
		log.Debugf("text delta for position %d without a text block, dropping", e.Index)
		return
	}
	b.Text += e.Text
	a.obs.TextDelta(e.Text)
}

func (a *Assembler) applyInputDelta(e InputJSONDeltaEvent) {
	p, ok := a.pending[e.Index]
	if !ok {
		log.Debugf("input delta for position %d without a pending tool_use, dropping", e.Index)
		return
	}
	p.buf.WriteString(e.PartialJSON)
}

func (a *Assembler) applyStop(e BlockStopEvent) {
	p, ok := a.pending[e.Index]
	if !ok {
		// Text blocks and unknown positions need no finalization.
		return
	}
	input := parseToolInput(p.name, p.buf.String())
	if b, ok := a.blocks[e.Index]; ok {
		b.Input = input
	}
	call := domain.ToolCall{
		ID:       p.id,
		Name:     p.name,
		Input:    input,
		Position: e.Index,
	}
	a.calls = append(a.calls, call)
	delete(a.pending, e.Index)
	a.obs.ToolCallFinalized(call)
}

// parseToolInput parses the accumulated argument buffer. An empty buffer
// is an empty object; malformed JSON falls back to an empty object so a
// single tool's bad arguments never fail the turn.
func parseToolInput(name, raw string) json.RawMessage {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return json.RawMessage(`{}`)
	}
	if !json.Valid([]byte(trimmed)) {
		log.WithField("tool", name).Warnf("malformed tool input %q, substituting empty object", truncate(trimmed, 120))
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(trimmed)
}

// Message finalizes the assembled assistant message: blocks ordered by
// ascending position, tool_use blocks without parsed input normalized to
// an empty object.
func (a *Assembler) Message() domain.Message {
	positions := make([]int, 0, len(a.blocks))
	for pos := range a.blocks {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	content := make([]domain.ContentBlock, 0, len(positions))
	for _, pos := range positions {
		b := *a.blocks[pos]
		if b.Type == domain.ContentBlockTypeToolUse && b.Input == nil {
			b.Input = json.RawMessage(`{}`)
		}
		content = append(content, b)
	}
	return domain.Message{Role: domain.RoleAssistant, Content: content}
}
