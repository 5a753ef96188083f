// Package board arranges tasks into kanban columns.
package board

import (
	"fmt"
	"sort"

	"planner/internal/common"
	"planner/internal/models"
)

// Column is one kanban lane.
type Column struct {
	Status models.TaskStatus `json:"id"`
	Title  string            `json:"title"`
	Tasks  []models.Task     `json:"tasks"`
}

var titles = map[models.TaskStatus]string{
	models.StatusTodo:       "To Do",
	models.StatusInProgress: "In Progress",
	models.StatusDone:       "Done",
}

// Title returns the display name of a column.
func Title(s models.TaskStatus) string {
	return titles[s]
}

// Build returns the three columns in fixed order, each sorted by position.
// Tasks with an unknown status are left out.
func Build(tasks []models.Task) []Column {
	cols := make([]Column, len(models.TaskStatuses))
	index := make(map[models.TaskStatus]int, len(cols))
	for i, s := range models.TaskStatuses {
		cols[i] = Column{Status: s, Title: titles[s], Tasks: []models.Task{}}
		index[s] = i
	}
	for _, t := range tasks {
		if i, ok := index[t.Status]; ok {
			cols[i].Tasks = append(cols[i].Tasks, t)
		}
	}
	for i := range cols {
		sort.SliceStable(cols[i].Tasks, func(a, b int) bool {
			return cols[i].Tasks[a].Position < cols[i].Tasks[b].Position
		})
	}
	return cols
}

// NextPosition is one past the highest position in status, or 0 for an empty column.
func NextPosition(tasks []models.Task, status models.TaskStatus, exceptID string) int64 {
	var next int64
	for _, t := range tasks {
		if t.Status == status && t.ID != exceptID && t.Position >= next {
			next = t.Position + 1
		}
	}
	return next
}

// Move returns a copy of tasks with id placed at the end of the status column.
// The input slice is not modified.
func Move(tasks []models.Task, id string, status models.TaskStatus) ([]models.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", common.ErrValidation, status)
	}
	out := make([]models.Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		if out[i].ID != id {
			continue
		}
		if out[i].Status == status {
			return out, nil
		}
		out[i].Position = NextPosition(out, status, id)
		out[i].Status = status
		return out, nil
	}
	return nil, fmt.Errorf("task %s: %w", id, common.ErrNotFound)
}
