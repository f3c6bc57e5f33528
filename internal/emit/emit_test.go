package emit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hollisb/patter/internal/domain"
)

func TestLineWriterWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	lw := NewLineWriter(&buf)

	events := []domain.OutboundEvent{
		domain.NewDeltaEvent("sess_1", "Hel"),
		domain.NewDeltaEvent("sess_1", "lo"),
		domain.NewDoneEvent("sess_1"),
	}
	for _, ev := range events {
		if err := lw.Emit(ev); err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	}

	var lines []string
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("line %d is not valid JSON: %v\n%s", i, err, line)
		}
		if m["session_id"] != "sess_1" {
			t.Fatalf("line %d missing session id: %s", i, line)
		}
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if first["type"] != "delta" || first["text"] != "Hel" {
		t.Fatalf("unexpected first event: %v", first)
	}
	if _, ok := first["ts"].(float64); !ok {
		t.Fatalf("expected numeric ts: %v", first)
	}
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) {
	return 0, errors.New("pipe closed")
}

func TestLineWriterPropagatesWriteError(t *testing.T) {
	lw := NewLineWriter(failWriter{})
	err := lw.Emit(domain.NewDoneEvent("sess_1"))
	if err == nil || !strings.Contains(err.Error(), "failed to write event") {
		t.Fatalf("unexpected error: %v", err)
	}
}

type recordingEmitter struct {
	events []domain.OutboundEvent
	err    error
}

func (r *recordingEmitter) Emit(ev domain.OutboundEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func TestTeeForwardsToPrimaryAndMirrors(t *testing.T) {
	primary := &recordingEmitter{}
	mirror := &recordingEmitter{}
	tee := NewTee(primary, mirror)

	if err := tee.Emit(domain.NewDoneEvent("sess_1")); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if len(primary.events) != 1 || len(mirror.events) != 1 {
		t.Fatalf("expected both emitters to receive the event: primary=%d mirror=%d", len(primary.events), len(mirror.events))
	}
}

func TestTeeMirrorFailureDoesNotPropagate(t *testing.T) {
	primary := &recordingEmitter{}
	broken := &recordingEmitter{err: errors.New("mirror down")}
	tee := NewTee(primary, broken)

	if err := tee.Emit(domain.NewDoneEvent("sess_1")); err != nil {
		t.Fatalf("mirror failure must not surface: %v", err)
	}
	if len(primary.events) != 1 {
		t.Fatalf("primary should still receive the event")
	}
}

func TestTeePrimaryFailurePropagates(t *testing.T) {
	errPrimary := errors.New("client went away")
	primary := &recordingEmitter{err: errPrimary}
	mirror := &recordingEmitter{}
	tee := NewTee(primary, mirror)

	if err := tee.Emit(domain.NewDoneEvent("sess_1")); !errors.Is(err, errPrimary) {
		t.Fatalf("expected primary error, got %v", err)
	}
	if len(mirror.events) != 0 {
		t.Fatalf("mirrors must not receive events the primary rejected")
	}
}
