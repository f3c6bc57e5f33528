package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hollisb/patter/internal/domain"
)

// RunCodeInput is the input for the run_code tool.
type RunCodeInput struct {
	Code string `json:"code" jsonschema_description:"Source for a short script. Runs under the configured interpreter with a hard timeout."`
}

type runCodeOutput struct {
	ExitCode int `json:"exit_code"`
}

const (
	defaultRunnerCommand = "python3"
	defaultRunnerTimeout = 15 * time.Second
	maxStderrTail        = 500
)

// CodeRunner executes run_code snippets in a scratch directory.
type CodeRunner struct {
	command string
	timeout time.Duration
}

// NewCodeRunner creates a runner for the given interpreter and timeout.
func NewCodeRunner(command string, timeout time.Duration) *CodeRunner {
	if command == "" {
		command = defaultRunnerCommand
	}
	if timeout <= 0 {
		timeout = defaultRunnerTimeout
	}
	return &CodeRunner{command: command, timeout: timeout}
}

// NewRunCode builds the run_code tool backed by runner.
func NewRunCode(runner *CodeRunner) Tool {
	return Tool{
		Manifest: domain.ToolManifest{
			Name:        "run_code",
			Description: "Execute a short script and capture its stdout. The script runs in a throwaway directory and is killed at the timeout.",
			InputSchema: GenerateSchema[RunCodeInput](),
			Examples:    []string{`{"code":"print(2 + 2)"}`},
			Categories:  []string{"code"},
		},
		Execute: func(ctx context.Context, input json.RawMessage) Result {
			var in RunCodeInput
			if err := json.Unmarshal(input, &in); err != nil {
				return Failure(fmt.Sprintf("invalid input: %v", err))
			}
			if strings.TrimSpace(in.Code) == "" {
				return Failure("code is required")
			}
			return runner.run(ctx, in.Code)
		},
	}
}

func (r *CodeRunner) run(ctx context.Context, code string) Result {
	dir, err := os.MkdirTemp("", "patter-run-*")
	if err != nil {
		return Failure(fmt.Sprintf("failed to create scratch directory: %v", err))
	}
	defer os.RemoveAll(dir)

	script := filepath.Join(dir, "snippet")
	if err := os.WriteFile(script, []byte(code), 0o600); err != nil {
		return Failure(fmt.Sprintf("failed to write snippet: %v", err))
	}

	trace := []TraceStep{
		{Title: "wrote snippet", Detail: fmt.Sprintf("%d bytes", len(code))},
		{Title: "executed", Detail: r.command + " snippet"},
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.command, script)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		trace = append(trace, TraceStep{Title: "timed out", Detail: r.timeout.String()})
		return Failure(fmt.Sprintf("timed out after %s", r.timeout), trace...)
	}
	if runErr != nil {
		code := exitCode(runErr)
		if code < 0 {
			return Failure(fmt.Sprintf("failed to run: %v", runErr), trace...)
		}
		trace = append(trace, TraceStep{Title: "exit status", Detail: fmt.Sprintf("%d", code)})
		msg := fmt.Sprintf("exit status %d", code)
		if tail := stderrTail(stderr.String()); tail != "" {
			msg += ": " + tail
		}
		return Failure(msg, trace...)
	}

	trace = append(trace, TraceStep{Title: "exit status", Detail: "0"})
	return Success(runCodeOutput{ExitCode: 0}, splitLines(stdout.String()), trace...)
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}

func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrTail {
		s = s[len(s)-maxStderrTail:]
	}
	return s
}
