package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"planner/internal/common"
	"planner/internal/models"
)

const taskColumns = `id, project_id, title, description, status, due_date, position, version, created_at, updated_at`

func scanTask(row rowScanner) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.DueDate,
		&t.Position, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	t.Documents = []models.Document{}
	return t, err
}

// ListTasks returns tasks in creation order with their documents. An empty
// projectID lists every task.
func (s *Store) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	docs, err := s.documentsOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if d, ok := docs[tasks[i].ID]; ok {
			tasks[i].Documents = d
		}
	}
	return tasks, nil
}

// GetTask retrieves a task by id with its documents.
func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	docs, err := s.documentsOf(ctx, []string{id})
	if err != nil {
		return models.Task{}, err
	}
	if d, ok := docs[id]; ok {
		t.Documents = d
	}
	return t, nil
}

// CreateTask inserts a task at version 1.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks(id, project_id, title, description, status, due_date, position, version, created_at, updated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		t.ID, t.ProjectID, t.Title, t.Description, t.Status, t.DueDate, t.Position, now, now)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(ctx, t.ID)
}

// UpdateTask overwrites the editable task fields and bumps the version.
func (s *Store) UpdateTask(ctx context.Context, t models.Task, expected int64) (models.Task, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET project_id = ?, title = ?, description = ?, status = ?, due_date = ?,
            position = ?, version = version + 1, updated_at = ?
        WHERE id = ? AND (? = 0 OR version = ?)`,
		t.ProjectID, t.Title, t.Description, t.Status, t.DueDate, t.Position, time.Now().UTC(), t.ID, expected, expected)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	if err := checkAffected(res); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return models.Task{}, s.missingOrStale(ctx, tableTasks, t.ID)
		}
		return models.Task{}, err
	}
	return s.GetTask(ctx, t.ID)
}

// DeleteTask removes a task by id. Its documents are kept.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("task %s: %w", id, err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
