package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hollisb/patter/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteStoreTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	first, err := st.AddTask(ctx, "buy milk")
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if first.ID != "t-1" || first.Status != domain.TaskStatusPending {
		t.Fatalf("unexpected task: %+v", first)
	}

	second, err := st.AddTask(ctx, "walk dog")
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if second.ID != "t-2" {
		t.Fatalf("unexpected id: %s", second.ID)
	}

	all, err := st.ListTasks(ctx, "")
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "t-1" || all[1].ID != "t-2" {
		t.Fatalf("unexpected tasks: %+v", all)
	}

	done, err := st.CompleteTask(ctx, "t-1")
	if err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	if done.Status != domain.TaskStatusDone || done.Title != "buy milk" {
		t.Fatalf("unexpected task: %+v", done)
	}

	pending, err := st.ListTasks(ctx, domain.TaskStatusPending)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "t-2" {
		t.Fatalf("unexpected pending tasks: %+v", pending)
	}

	completed, err := st.ListTasks(ctx, domain.TaskStatusDone)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != "t-1" {
		t.Fatalf("unexpected done tasks: %+v", completed)
	}
}

func TestSQLiteStoreCompleteTaskNotFound(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	if _, err := st.CompleteTask(ctx, "t-99"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := st.CompleteTask(ctx, "not-an-id"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound for malformed id, got %v", err)
	}
}

func TestSQLiteStoreReplaceCorpus(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	initial := []domain.Document{
		{Title: "Task workflow", Body: "add, list, complete"},
		{Title: "Sessions", Body: "caller-held state"},
	}
	if err := st.ReplaceCorpus(ctx, initial); err != nil {
		t.Fatalf("ReplaceCorpus failed: %v", err)
	}

	docs, err := st.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 2 || docs[0].Title != "Task workflow" {
		t.Fatalf("unexpected documents: %+v", docs)
	}

	// Replacing swaps the whole corpus, it does not merge.
	if err := st.ReplaceCorpus(ctx, []domain.Document{{Title: "Only doc", Body: "x"}}); err != nil {
		t.Fatalf("ReplaceCorpus failed: %v", err)
	}
	docs, err = st.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "Only doc" {
		t.Fatalf("unexpected documents after replace: %+v", docs)
	}
}

func TestParseTaskID(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"t-3", 3, false},
		{"7", 7, false},
		{" t-12 ", 12, false},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := parseTaskID(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrTaskNotFound) {
				t.Fatalf("parseTaskID(%q): expected ErrTaskNotFound, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("parseTaskID(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
	}
}

func TestLoadCorpusFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.yaml")
	content := `documents:
  - title: First doc
    body: first body
  - title: Second doc
    body: second body
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write corpus file failed: %v", err)
	}

	docs, err := LoadCorpusFile(path)
	if err != nil {
		t.Fatalf("LoadCorpusFile failed: %v", err)
	}
	if len(docs) != 2 || docs[0].Title != "First doc" || docs[1].Body != "second body" {
		t.Fatalf("unexpected documents: %+v", docs)
	}

	if _, err := LoadCorpusFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("documents: [not: valid"), 0o644); err != nil {
		t.Fatalf("write bad corpus failed: %v", err)
	}
	if _, err := LoadCorpusFile(bad); err == nil {
		t.Fatalf("expected error for malformed file")
	}
}

func TestDefaultCorpus(t *testing.T) {
	docs := DefaultCorpus()
	if len(docs) == 0 {
		t.Fatalf("expected a non-empty default corpus")
	}
	for _, doc := range docs {
		if doc.Title == "" || doc.Body == "" {
			t.Fatalf("default corpus has an empty document: %+v", doc)
		}
	}
}
