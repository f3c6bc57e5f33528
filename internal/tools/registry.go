// Package tools holds the tool registry and the built-in tool capabilities.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hollisb/patter/internal/domain"
)

// ExecutorFunc runs one tool invocation. It reports problems through the
// returned Result rather than an error so that a failing tool never aborts
// the exchange.
type ExecutorFunc func(ctx context.Context, input json.RawMessage) Result

// Tool couples a manifest with its executor.
type Tool struct {
	Manifest domain.ToolManifest
	Execute  ExecutorFunc
}

// Registry stores tools keyed by name. It is constructed explicitly and
// injected wherever tools are invoked; there is no process-wide registry.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t Tool) error {
	if t.Manifest.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Execute == nil {
		return fmt.Errorf("executor is required for %s", t.Manifest.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Manifest.Name]; exists {
		return fmt.Errorf("tool already registered: %s", t.Manifest.Name)
	}
	r.tools[t.Manifest.Name] = t
	r.order = append(r.order, t.Manifest.Name)
	return nil
}

// Invoke runs the named tool synchronously. An unknown name yields a failure
// result, not an error.
func (r *Registry) Invoke(ctx context.Context, name string, input json.RawMessage) Result {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Failure("Unknown tool: " + name)
	}
	return t.Execute(ctx, input)
}

// Manifests returns every registered manifest in registration order.
func (r *Registry) Manifests() []domain.ToolManifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ToolManifest, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Manifest)
	}
	return out
}
