package tools

import (
	"encoding/json"
	"fmt"
)

// TraceStep is one human-readable step in a tool's execution trace.
type TraceStep struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Result is the tagged outcome of one tool invocation. A failure is not an
// orchestration error; it is rendered into the conversation for the model to
// react to.
type Result struct {
	OK      bool
	Value   any
	Logs    []string
	Message string
	Trace   []TraceStep
}

// Success builds a success result.
func Success(value any, logs []string, trace ...TraceStep) Result {
	return Result{OK: true, Value: value, Logs: logs, Trace: trace}
}

// Failure builds a failure result.
func Failure(message string, trace ...TraceStep) Result {
	return Result{OK: false, Message: message, Trace: trace}
}

type successPayload struct {
	Result any         `json:"result"`
	Logs   []string    `json:"logs"`
	Trace  []TraceStep `json:"trace"`
}

type failurePayload struct {
	OK      bool        `json:"ok"`
	Message string      `json:"message"`
	Trace   []TraceStep `json:"trace"`
}

// Render serializes the result into the single string carried inside a tool
// message. Logs and trace always serialize as arrays, never null.
func (r Result) Render() string {
	logs := r.Logs
	if logs == nil {
		logs = []string{}
	}
	trace := r.Trace
	if trace == nil {
		trace = []TraceStep{}
	}

	if !r.OK {
		b, _ := json.Marshal(failurePayload{OK: false, Message: r.Message, Trace: trace})
		return string(b)
	}

	b, err := json.Marshal(successPayload{Result: r.Value, Logs: logs, Trace: trace})
	if err != nil {
		b, _ = json.Marshal(failurePayload{
			OK:      false,
			Message: fmt.Sprintf("failed to serialize tool result: %v", err),
			Trace:   trace,
		})
	}
	return string(b)
}
