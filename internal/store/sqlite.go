package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/hollisb/patter/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store. The default DSN is ":memory:",
// which exists per connection, so the pool is pinned to a single connection.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			task_id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			doc_id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL UNIQUE,
			body TEXT NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddTask inserts a new pending task and returns it.
func (s *SQLiteStore) AddTask(ctx context.Context, title string) (domain.Task, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, status) VALUES (?, ?)`,
		title, domain.TaskStatusPending)
	if err != nil {
		return domain.Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Task{}, err
	}
	return domain.Task{ID: renderTaskID(id), Title: title, Status: domain.TaskStatusPending}, nil
}

// ListTasks returns tasks in creation order, optionally filtered by status.
func (s *SQLiteStore) ListTasks(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	query := `SELECT task_id, title, status FROM tasks`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY task_id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var id int64
		var task domain.Task
		if err := rows.Scan(&id, &task.Title, &task.Status); err != nil {
			return nil, err
		}
		task.ID = renderTaskID(id)
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// CompleteTask marks a task done and returns the updated task.
func (s *SQLiteStore) CompleteTask(ctx context.Context, id string) (domain.Task, error) {
	numeric, err := parseTaskID(id)
	if err != nil {
		return domain.Task{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ? WHERE task_id = ?`,
		domain.TaskStatusDone, numeric)
	if err != nil {
		return domain.Task{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Task{}, err
	}
	if affected == 0 {
		return domain.Task{}, ErrTaskNotFound
	}

	var task domain.Task
	err = s.db.QueryRowContext(ctx,
		`SELECT title, status FROM tasks WHERE task_id = ?`,
		numeric).Scan(&task.Title, &task.Status)
	if err != nil {
		return domain.Task{}, err
	}
	task.ID = renderTaskID(numeric)
	return task, nil
}

// ReplaceCorpus swaps the document corpus atomically.
func (s *SQLiteStore) ReplaceCorpus(ctx context.Context, docs []domain.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return err
	}
	for _, doc := range docs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (title, body) VALUES (?, ?)`,
			doc.Title, doc.Body); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListDocuments returns the full corpus in insertion order.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, body FROM documents ORDER BY doc_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.Title, &doc.Body); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// renderTaskID formats a row id as the external task id.
func renderTaskID(id int64) string {
	return "t-" + strconv.FormatInt(id, 10)
}

// parseTaskID accepts both "t-3" and bare "3".
func parseTaskID(id string) (int64, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(id), "t-")
	numeric, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	return numeric, nil
}
