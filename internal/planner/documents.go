package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"planner/internal/blob"
	"planner/internal/models"
)

// AttachDocument stores an upload and appends it to the task's documents.
func (s *Service) AttachDocument(ctx context.Context, taskID, filename string, r io.Reader, size int64, contentType string) (models.Document, error) {
	if s.blobs == nil {
		return models.Document{}, errors.New("blob storage not configured")
	}
	if _, err := s.repo.GetTask(ctx, taskID); err != nil {
		return models.Document{}, err
	}

	name := blob.SafeName(filename)
	docID := "doc-" + uuid.NewString()
	key := fmt.Sprintf("documents/%s/%s", docID, name)
	if contentType == "" {
		contentType = blob.ContentType(name)
	}
	if err := s.blobs.Put(ctx, key, r, size, contentType); err != nil {
		return models.Document{}, err
	}

	doc, err := s.repo.AddDocument(ctx, models.Document{
		ID:          docID,
		Name:        name,
		TaskID:      taskID,
		BlobKey:     key,
		ContentType: contentType,
		Size:        size,
		UploadedAt:  s.now().UTC(),
	})
	if err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.Warn("remove orphaned upload", slog.String("key", key), slog.String("error", derr.Error()))
		}
		return models.Document{}, err
	}
	s.resolveDocument(ctx, &doc)
	return doc, nil
}

// RemoveDocument detaches a document from its task and deletes its bytes.
func (s *Service) RemoveDocument(ctx context.Context, taskID, docID string) error {
	doc, err := s.repo.GetDocument(ctx, taskID, docID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDocument(ctx, taskID, docID); err != nil {
		return err
	}
	if s.blobs != nil && doc.BlobKey != "" {
		if err := s.blobs.Delete(ctx, doc.BlobKey); err != nil {
			s.logger.Warn("remove document bytes", slog.String("key", doc.BlobKey), slog.String("error", err.Error()))
		}
	}
	return nil
}

// ProjectDocuments lists the documents of every task in a project.
func (s *Service) ProjectDocuments(ctx context.Context, projectID string) ([]models.Document, error) {
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	tasks, err := s.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	docs := []models.Document{}
	for _, t := range tasks {
		docs = append(docs, t.Documents...)
	}
	return docs, nil
}

// SearchFiles lists every attached document whose name, task title or
// project name contains term, ignoring case. An empty term matches all.
func (s *Service) SearchFiles(ctx context.Context, term string) ([]models.FileEntry, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	tasks, err := s.ListTasks(ctx, "")
	if err != nil {
		return nil, err
	}

	fold := cases.Fold()
	needle := fold.String(term)
	contains := func(field string) bool {
		return strings.Contains(fold.String(field), needle)
	}

	out := []models.FileEntry{}
	for _, t := range tasks {
		for _, d := range t.Documents {
			entry := models.FileEntry{
				ID:          d.ID,
				Name:        d.Name,
				URL:         d.URL,
				TaskID:      t.ID,
				TaskName:    t.Title,
				ProjectID:   t.ProjectID,
				ProjectName: names[t.ProjectID],
				UploadDate:  d.UploadedAt.Format(models.DateLayout),
			}
			if needle == "" || contains(entry.Name) || contains(entry.TaskName) || contains(entry.ProjectName) {
				out = append(out, entry)
			}
		}
	}
	return out, nil
}

func (s *Service) resolveDocuments(ctx context.Context, docs []models.Document) {
	for i := range docs {
		s.resolveDocument(ctx, &docs[i])
	}
}

func (s *Service) resolveDocument(ctx context.Context, d *models.Document) {
	if s.blobs == nil || d.BlobKey == "" {
		return
	}
	u, err := s.blobs.URL(ctx, d.BlobKey)
	if err != nil {
		s.logger.Warn("resolve document url", slog.String("key", d.BlobKey), slog.String("error", err.Error()))
		return
	}
	d.URL = u
}
