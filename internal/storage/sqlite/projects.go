package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"planner/internal/common"
	"planner/internal/models"
)

const (
	tableProjects = "projects"
	tableTasks    = "tasks"

	projectColumns = `id, name, progress, version, created_at, updated_at`
)

func scanProject(row rowScanner) (models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.Name, &p.Progress, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListProjects retrieves all projects in creation order.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateProject persists a new project at version 1.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects(id, name, progress, version, created_at, updated_at) VALUES(?, ?, ?, 1, ?, ?)`,
		p.ID, p.Name, p.Progress, now, now)
	if err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return s.GetProject(ctx, p.ID)
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// UpdateProject stores name and progress and bumps the version.
func (s *Store) UpdateProject(ctx context.Context, p models.Project, expected int64) (models.Project, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ?, progress = ?, version = version + 1, updated_at = ?
        WHERE id = ? AND (? = 0 OR version = ?)`,
		p.Name, p.Progress, time.Now().UTC(), p.ID, expected, expected)
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	if err := checkAffected(res); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return models.Project{}, s.missingOrStale(ctx, tableProjects, p.ID)
		}
		return models.Project{}, err
	}
	return s.GetProject(ctx, p.ID)
}

// DeleteProject removes a project. Tasks pointing at it are kept.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("project %s: %w", id, err)
	}
	return nil
}
