package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hollisb/patter/internal/domain"
	"github.com/hollisb/patter/internal/store"
)

// AddTaskInput is the input for the add_task tool.
type AddTaskInput struct {
	Title string `json:"title" jsonschema_description:"Short description of the task to add."`
}

// ListTasksInput is the input for the list_tasks tool.
type ListTasksInput struct {
	Status string `json:"status,omitempty" jsonschema_description:"Optional filter: pending or done. Omit to list everything."`
}

// CompleteTaskInput is the input for the complete_task tool.
type CompleteTaskInput struct {
	ID string `json:"id" jsonschema_description:"Task id to mark done, for example t-1."`
}

// NewAddTask builds the add_task tool backed by st.
func NewAddTask(st store.Store) Tool {
	return Tool{
		Manifest: domain.ToolManifest{
			Name:        "add_task",
			Description: "Add a new pending task to the task list.",
			InputSchema: GenerateSchema[AddTaskInput](),
			Examples:    []string{`{"title":"write release notes"}`},
			Categories:  []string{"tasks"},
		},
		Execute: func(ctx context.Context, input json.RawMessage) Result {
			var in AddTaskInput
			if err := json.Unmarshal(input, &in); err != nil {
				return Failure(fmt.Sprintf("invalid input: %v", err))
			}
			if strings.TrimSpace(in.Title) == "" {
				return Failure("title is required")
			}
			task, err := st.AddTask(ctx, strings.TrimSpace(in.Title))
			if err != nil {
				return Failure(fmt.Sprintf("failed to add task: %v", err))
			}
			return Success(task, nil, TraceStep{
				Title:  "added task",
				Detail: fmt.Sprintf("%s: %s", task.ID, task.Title),
			})
		},
	}
}

// NewListTasks builds the list_tasks tool backed by st.
func NewListTasks(st store.Store) Tool {
	return Tool{
		Manifest: domain.ToolManifest{
			Name:        "list_tasks",
			Description: "List tasks, optionally filtered by status (pending or done).",
			InputSchema: GenerateSchema[ListTasksInput](),
			Examples:    []string{`{}`, `{"status":"pending"}`},
			Categories:  []string{"tasks"},
		},
		Execute: func(ctx context.Context, input json.RawMessage) Result {
			var in ListTasksInput
			if len(input) > 0 {
				if err := json.Unmarshal(input, &in); err != nil {
					return Failure(fmt.Sprintf("invalid input: %v", err))
				}
			}
			status := domain.TaskStatus(in.Status)
			switch status {
			case "", domain.TaskStatusPending, domain.TaskStatusDone:
			default:
				return Failure(fmt.Sprintf("unknown status %q", in.Status))
			}
			tasks, err := st.ListTasks(ctx, status)
			if err != nil {
				return Failure(fmt.Sprintf("failed to list tasks: %v", err))
			}
			if tasks == nil {
				tasks = []domain.Task{}
			}
			detail := "status=any"
			if status != "" {
				detail = "status=" + string(status)
			}
			return Success(tasks, nil, TraceStep{
				Title:  "queried tasks",
				Detail: fmt.Sprintf("%s, %d found", detail, len(tasks)),
			})
		},
	}
}

// NewCompleteTask builds the complete_task tool backed by st.
func NewCompleteTask(st store.Store) Tool {
	return Tool{
		Manifest: domain.ToolManifest{
			Name:        "complete_task",
			Description: "Mark a task as done by its id.",
			InputSchema: GenerateSchema[CompleteTaskInput](),
			Examples:    []string{`{"id":"t-1"}`},
			Categories:  []string{"tasks"},
		},
		Execute: func(ctx context.Context, input json.RawMessage) Result {
			var in CompleteTaskInput
			if err := json.Unmarshal(input, &in); err != nil {
				return Failure(fmt.Sprintf("invalid input: %v", err))
			}
			if in.ID == "" {
				return Failure("id is required")
			}
			task, err := st.CompleteTask(ctx, in.ID)
			if errors.Is(err, store.ErrTaskNotFound) {
				return Failure(fmt.Sprintf("no task with id %s", in.ID))
			}
			if err != nil {
				return Failure(fmt.Sprintf("failed to complete task: %v", err))
			}
			return Success(task, nil, TraceStep{
				Title:  "completed task",
				Detail: fmt.Sprintf("%s: %s", task.ID, task.Title),
			})
		},
	}
}
