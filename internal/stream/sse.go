// Package stream decodes the model endpoint's SSE wire stream and
// assembles the decoded events into complete assistant messages.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/hollisb/patter/internal/logger"
)

var log = logger.Named("stream")

// ErrStopScan is returned by a Handler to end scanning early without
// reporting an error, the way a turn ends on message_stop while bytes may
// still follow.
var ErrStopScan = errors.New("stream: stop scanning")

// Handler consumes one decoded wire frame: the event name from the
// `event:` line (may be empty) and the frame's JSON payload.
type Handler func(event string, payload json.RawMessage) error

// Decoder splits an incrementally arriving SSE byte stream into discrete
// wire frames. A frame is the lines up to a blank line; `event:` sets the
// frame's event name, `data:` lines are stripped of the prefix and
// concatenated without separators to form the payload. A decoder is one
// shot: it cannot be rewound or reused.
type Decoder struct {
	scanner *bufio.Scanner
	frames  int
	done    bool
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Decoder{scanner: scanner}
}

// Frames reports how many well-formed frames were handed to the handler.
func (d *Decoder) Frames() int { return d.frames }

// Terminated reports whether the [DONE] sentinel ended the stream.
func (d *Decoder) Terminated() bool { return d.done }

// Scan consumes the stream until the [DONE] sentinel, input exhaustion, a
// handler error or context cancellation. A frame whose payload is not
// valid JSON is logged and skipped; it never aborts the stream. Partial
// frames stay buffered until their terminating blank line arrives.
func (d *Decoder) Scan(ctx context.Context, h Handler) error {
	var event string
	var data strings.Builder

	flush := func() (bool, error) {
		if event == "" && data.Len() == 0 {
			return false, nil
		}
		name := event
		payload := data.String()
		event = ""
		data.Reset()

		if payload == "[DONE]" {
			d.done = true
			return true, nil
		}
		if !json.Valid([]byte(payload)) {
			log.WithField("event", name).Warnf("skipping frame with malformed payload: %q", truncate(payload, 120))
			return false, nil
		}
		d.frames++
		return false, h(name, json.RawMessage(payload))
	}

	for d.scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := d.scanner.Text()
		if line == "" {
			stop, err := flush()
			if err != nil {
				if errors.Is(err, ErrStopScan) {
					return nil
				}
				return err
			}
			if stop {
				return nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "event:") {
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if strings.HasPrefix(line, "data:") {
			data.WriteString(stripDataPrefix(line))
			continue
		}
	}
	if err := d.scanner.Err(); err != nil {
		return err
	}

	// Trailing frame without a terminating blank line.
	if _, err := flush(); err != nil && !errors.Is(err, ErrStopScan) {
		return err
	}
	return nil
}

// stripDataPrefix removes "data:" and the single optional space that
// follows it, leaving the payload bytes untouched.
func stripDataPrefix(line string) string {
	rest := strings.TrimPrefix(line, "data:")
	return strings.TrimPrefix(rest, " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
