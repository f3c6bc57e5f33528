package tools

import (
	"github.com/hollisb/patter/internal/store"
)

// RegisterBuiltins registers the standard tool set against the given store
// and code runner.
func RegisterBuiltins(r *Registry, st store.Store, runner *CodeRunner) error {
	builtins := []Tool{
		NewRunCode(runner),
		NewSearchDocs(st),
		NewAddTask(st),
		NewListTasks(st),
		NewCompleteTask(st),
	}
	for _, t := range builtins {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
