// Package store defines the storage interface backing the built-in tools.
package store

import (
	"context"
	"errors"

	"github.com/hollisb/patter/internal/domain"
)

// ErrTaskNotFound is returned when a task id does not exist.
var ErrTaskNotFound = errors.New("task not found")

// Store defines the interface for tool-facing persistence. It is constructed
// once and injected; nothing in this package holds process-wide state.
type Store interface {
	// Task operations
	AddTask(ctx context.Context, title string) (domain.Task, error)
	ListTasks(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error)
	CompleteTask(ctx context.Context, id string) (domain.Task, error)

	// Corpus operations
	ReplaceCorpus(ctx context.Context, docs []domain.Document) error
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// Lifecycle
	Close() error
}
