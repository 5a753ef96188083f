package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"planner/internal/common"
	"planner/internal/models"
)

const documentColumns = `id, task_id, name, blob_key, content_type, size, uploaded_at`

func scanDocument(row rowScanner) (models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.TaskID, &d.Name, &d.BlobKey, &d.ContentType, &d.Size, &d.UploadedAt)
	return d, err
}

// documentsOf loads the ordered documents of the given tasks keyed by task id.
func (s *Store) documentsOf(ctx context.Context, taskIDs []string) (map[string][]models.Document, error) {
	args := make([]any, len(taskIDs))
	for i, id := range taskIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents
        WHERE task_id IN (`+placeholders(len(taskIDs))+`) ORDER BY task_id, position, rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.Document)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out[d.TaskID] = append(out[d.TaskID], d)
	}
	return out, rows.Err()
}

// AddDocument appends a document to the end of its task's list.
func (s *Store) AddDocument(ctx context.Context, d models.Document) (models.Document, error) {
	pos, err := s.nextDocumentPosition(ctx, d.TaskID)
	if err != nil {
		return models.Document{}, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO documents(id, task_id, name, blob_key, content_type, size, position, uploaded_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.TaskID, d.Name, d.BlobKey, d.ContentType, d.Size, pos, d.UploadedAt)
	if err != nil {
		return models.Document{}, fmt.Errorf("insert document: %w", err)
	}
	return s.GetDocument(ctx, d.TaskID, d.ID)
}

// GetDocument fetches one document of a task.
func (s *Store) GetDocument(ctx context.Context, taskID, docID string) (models.Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE task_id = ? AND id = ?`, taskID, docID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, fmt.Errorf("document %s: %w", docID, common.ErrNotFound)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

// DeleteDocument detaches a document from its task.
func (s *Store) DeleteDocument(ctx context.Context, taskID, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE task_id = ? AND id = ?`, taskID, docID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("document %s: %w", docID, err)
	}
	return nil
}

func (s *Store) nextDocumentPosition(ctx context.Context, taskID string) (int64, error) {
	var position sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(position) FROM documents WHERE task_id = ?`, taskID).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("select position: %w", err)
	}
	if position.Valid {
		return position.Int64 + 1, nil
	}
	return 0, nil
}
