package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hollisb/patter/internal/domain"
)

// corpusFile is the on-disk corpus format.
type corpusFile struct {
	Documents []domain.Document `yaml:"documents"`
}

// LoadCorpusFile reads a YAML document corpus from disk.
func LoadCorpusFile(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}
	var f corpusFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse corpus file: %w", err)
	}
	return f.Documents, nil
}

// DefaultCorpus returns the built-in documents seeded when no corpus file is
// configured.
func DefaultCorpus() []domain.Document {
	return []domain.Document{
		{
			Title: "Task workflow",
			Body:  "Tasks move from pending to done. Use add_task to create one, list_tasks to review the queue, and complete_task with the task id (for example t-1) to close it out.",
		},
		{
			Title: "Running code snippets",
			Body:  "The run_code tool executes a short script in a scratch directory and captures stdout line by line. Long-running or interactive programs are cut off at the configured timeout.",
		},
		{
			Title: "Searching the docs",
			Body:  "search_docs matches the query against document titles using fuzzy matching, so partial words and abbreviations usually land. Results come back ranked, best match first.",
		},
		{
			Title: "Sessions",
			Body:  "Each exchange belongs to a session holding the full conversation. Pass the session snapshot back with the next prompt to continue where you left off; omit it to start fresh.",
		},
	}
}
