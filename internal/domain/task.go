package domain

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
)

// Task is one entry in the task list.
type Task struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Status TaskStatus `json:"status"`
}

// Document is one entry in the searchable knowledge corpus.
type Document struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
