// Package planner is the data-access service shared by every page of the
// planner: projects, tasks, documents, files search, board, dashboard and
// calendar agenda.
package planner

import (
	"context"

	"planner/internal/models"
)

// Repository persists projects, tasks and documents.
//
// Update methods take the version the caller last read. Zero skips the check;
// any other value must match the stored row or common.ErrVersionConflict is
// returned. Missing rows yield common.ErrNotFound.
type Repository interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, id string) (models.Project, error)
	CreateProject(ctx context.Context, p models.Project) (models.Project, error)
	UpdateProject(ctx context.Context, p models.Project, expected int64) (models.Project, error)
	DeleteProject(ctx context.Context, id string) error

	// ListTasks returns tasks with their documents; an empty projectID lists all.
	ListTasks(ctx context.Context, projectID string) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (models.Task, error)
	CreateTask(ctx context.Context, t models.Task) (models.Task, error)
	UpdateTask(ctx context.Context, t models.Task, expected int64) (models.Task, error)
	DeleteTask(ctx context.Context, id string) error

	// AddDocument appends d to the document list of d.TaskID.
	AddDocument(ctx context.Context, d models.Document) (models.Document, error)
	GetDocument(ctx context.Context, taskID, docID string) (models.Document, error)
	DeleteDocument(ctx context.Context, taskID, docID string) error
}
