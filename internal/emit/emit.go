// Package emit serializes outbound events onto a transport.
package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/hollisb/patter/internal/domain"
	"github.com/hollisb/patter/internal/logger"
)

var log = logger.Named("emit")

// Emitter delivers one outbound event. Implementations must preserve
// emission order and must not buffer events across calls.
type Emitter interface {
	Emit(ev domain.OutboundEvent) error
}

// LineWriter writes newline-delimited JSON, one event per line. Each event
// is flushed before Emit returns when the underlying writer supports it.
type LineWriter struct {
	mu      sync.Mutex
	enc     *json.Encoder
	flusher http.Flusher
}

// NewLineWriter wraps w as an NDJSON emitter.
func NewLineWriter(w io.Writer) *LineWriter {
	lw := &LineWriter{enc: json.NewEncoder(w)}
	if f, ok := w.(http.Flusher); ok {
		lw.flusher = f
	}
	return lw
}

// Emit writes one event as a single JSON line.
func (lw *LineWriter) Emit(ev domain.OutboundEvent) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if err := lw.enc.Encode(ev); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if lw.flusher != nil {
		lw.flusher.Flush()
	}
	return nil
}

// Tee forwards each event to the primary emitter, then mirrors it to the
// others best-effort. Only the primary's error propagates.
type Tee struct {
	primary Emitter
	mirrors []Emitter
}

// NewTee builds a Tee with one authoritative primary.
func NewTee(primary Emitter, mirrors ...Emitter) *Tee {
	return &Tee{primary: primary, mirrors: mirrors}
}

// Emit delivers ev to the primary, then to every mirror.
func (t *Tee) Emit(ev domain.OutboundEvent) error {
	if err := t.primary.Emit(ev); err != nil {
		return err
	}
	for _, m := range t.mirrors {
		if err := m.Emit(ev); err != nil {
			log.Debugf("mirror emit failed: %v", err)
		}
	}
	return nil
}
