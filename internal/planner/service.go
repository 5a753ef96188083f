package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"planner/internal/blob"
	"planner/internal/board"
	"planner/internal/common"
	"planner/internal/models"
)

// Service validates input and coordinates the repository with the blob store.
type Service struct {
	repo   Repository
	blobs  blob.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the planner service.
func NewService(repo Repository, blobs blob.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, blobs: blobs, logger: logger, now: time.Now}
}

// ProjectUpdate is a partial project change.
type ProjectUpdate struct {
	Name     *string `json:"name"`
	Progress *int    `json:"progress"`
	Version  int64   `json:"version"`
}

// TaskInput creates a task.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	DueDate     string `json:"dueDate"`
	ProjectID   string `json:"projectId"`
}

// TaskUpdate is a partial task change.
type TaskUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	DueDate     *string `json:"dueDate"`
	ProjectID   *string `json:"projectId"`
	Version     int64   `json:"version"`
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, fmt.Sprintf(format, args...))
}

func (s *Service) today() string {
	return s.now().Format(models.DateLayout)
}

func validDate(v string) error {
	if _, err := time.Parse(models.DateLayout, v); err != nil {
		return invalid("due date %q is not YYYY-MM-DD", v)
	}
	return nil
}

// ListProjects returns every project.
func (s *Service) ListProjects(ctx context.Context) ([]models.Project, error) {
	return s.repo.ListProjects(ctx)
}

// GetProject returns one project.
func (s *Service) GetProject(ctx context.Context, id string) (models.Project, error) {
	return s.repo.GetProject(ctx, id)
}

// CreateProject adds a project with zero progress.
func (s *Service) CreateProject(ctx context.Context, name string) (models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Project{}, invalid("project name must not be empty")
	}
	id, err := newID()
	if err != nil {
		return models.Project{}, err
	}
	return s.repo.CreateProject(ctx, models.Project{ID: id, Name: name})
}

// UpdateProject renames a project and/or sets its progress.
func (s *Service) UpdateProject(ctx context.Context, id string, upd ProjectUpdate) (models.Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return models.Project{}, invalid("project name must not be empty")
		}
		p.Name = name
	}
	if upd.Progress != nil {
		if *upd.Progress < 0 || *upd.Progress > 100 {
			return models.Project{}, invalid("progress must be within 0..100")
		}
		p.Progress = *upd.Progress
	}
	return s.repo.UpdateProject(ctx, p, upd.Version)
}

// DeleteProject removes a project. Its tasks are left as they are.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	return s.repo.DeleteProject(ctx, id)
}

// ListTasks returns tasks, optionally limited to one project.
func (s *Service) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	tasks, err := s.repo.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		s.resolveDocuments(ctx, tasks[i].Documents)
	}
	return tasks, nil
}

// GetTask returns one task with its documents.
func (s *Service) GetTask(ctx context.Context, id string) (models.Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	s.resolveDocuments(ctx, t.Documents)
	return t, nil
}

// CreateTask adds a task at the end of its column.
func (s *Service) CreateTask(ctx context.Context, in TaskInput) (models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Task{}, invalid("task title must not be empty")
	}
	if strings.TrimSpace(in.ProjectID) == "" {
		return models.Task{}, invalid("project id is required")
	}
	status := models.TaskStatus(in.Status)
	if status == "" {
		status = models.StatusTodo
	}
	if !status.Valid() {
		return models.Task{}, invalid("unknown status %q", in.Status)
	}
	due := in.DueDate
	if due == "" {
		due = s.today()
	}
	if err := validDate(due); err != nil {
		return models.Task{}, err
	}

	all, err := s.repo.ListTasks(ctx, "")
	if err != nil {
		return models.Task{}, err
	}
	id, err := newID()
	if err != nil {
		return models.Task{}, err
	}
	return s.repo.CreateTask(ctx, models.Task{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      status,
		DueDate:     due,
		ProjectID:   strings.TrimSpace(in.ProjectID),
		Position:    board.NextPosition(all, status, ""),
		Documents:   []models.Document{},
	})
}

// UpdateTask applies a partial change. A status change moves the task to the
// end of the target column.
func (s *Service) UpdateTask(ctx context.Context, id string, upd TaskUpdate) (models.Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return models.Task{}, invalid("task title must not be empty")
		}
		t.Title = title
	}
	if upd.Description != nil {
		t.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.DueDate != nil {
		if err := validDate(*upd.DueDate); err != nil {
			return models.Task{}, err
		}
		t.DueDate = *upd.DueDate
	}
	if upd.ProjectID != nil {
		if strings.TrimSpace(*upd.ProjectID) == "" {
			return models.Task{}, invalid("project id is required")
		}
		t.ProjectID = strings.TrimSpace(*upd.ProjectID)
	}
	if upd.Status != nil && models.TaskStatus(*upd.Status) != t.Status {
		status := models.TaskStatus(*upd.Status)
		if !status.Valid() {
			return models.Task{}, invalid("unknown status %q", *upd.Status)
		}
		all, err := s.repo.ListTasks(ctx, "")
		if err != nil {
			return models.Task{}, err
		}
		t.Position = board.NextPosition(all, status, t.ID)
		t.Status = status
	}

	updated, err := s.repo.UpdateTask(ctx, t, upd.Version)
	if err != nil {
		return models.Task{}, err
	}
	s.resolveDocuments(ctx, updated.Documents)
	return updated, nil
}

// MoveTask puts a task at the end of the status column.
func (s *Service) MoveTask(ctx context.Context, id string, status models.TaskStatus) (models.Task, error) {
	all, err := s.repo.ListTasks(ctx, "")
	if err != nil {
		return models.Task{}, err
	}
	moved, err := board.Move(all, id, status)
	if err != nil {
		return models.Task{}, err
	}
	for _, t := range moved {
		if t.ID != id {
			continue
		}
		updated, err := s.repo.UpdateTask(ctx, t, t.Version)
		if err != nil {
			return models.Task{}, err
		}
		s.resolveDocuments(ctx, updated.Documents)
		return updated, nil
	}
	return models.Task{}, common.ErrNotFound
}

// DeleteTask removes a task. Its documents and their bytes stay in storage.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	return s.repo.DeleteTask(ctx, id)
}

// Board returns the kanban columns over every task.
func (s *Service) Board(ctx context.Context) ([]board.Column, error) {
	tasks, err := s.ListTasks(ctx, "")
	if err != nil {
		return nil, err
	}
	return board.Build(tasks), nil
}
