// Package policy gates tool invocations through an OPA policy.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"
)

// DecisionAllow permits the invocation; anything else blocks it.
const DecisionAllow = "allow"

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine from the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.patter.decision"),
		rego.Module("patter.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads policy content from disk. An empty path falls back
// to DefaultPolicy.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	content := DefaultPolicy
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read policy file: %w", err)
		}
		content = string(data)
	}
	return NewEngine(ctx, content)
}

// Evaluate checks the tool policy for one invocation.
// Input is a map with keys tool_name and args.
// Returns: decision ("allow" or "block"), reason (optional), error.
func (e *Engine) Evaluate(ctx context.Context, input any) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "default", nil
	}

	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return val, "", nil
	case map[string]any:
		decision, _ := val["decision"].(string)
		reason, _ := val["reason"].(string)
		if decision == "" {
			decision = DecisionAllow
		}
		return decision, reason, nil
	default:
		return DecisionAllow, "unexpected return type", nil
	}
}

// DefaultPolicy allows everything except run_code payloads that look
// destructive.
const DefaultPolicy = `
package patter

default decision := "allow"

decision := "block" if {
	input.tool_name == "run_code"
	contains(input.args.code, "rm -rf")
}

decision := "block" if {
	input.tool_name == "run_code"
	contains(input.args.code, "shutil.rmtree")
}

decision := "block" if {
	input.tool_name == "run_code"
	contains(input.args.code, "mkfs")
}
`
