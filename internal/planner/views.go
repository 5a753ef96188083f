package planner

import (
	"context"
	"time"

	"planner/internal/board"
	"planner/internal/calendar"
	"planner/internal/models"
)

// DayTasks lists the tasks due on one day.
type DayTasks struct {
	Date  string        `json:"date"`
	Tasks []models.Task `json:"tasks"`
}

// Dashboard is the landing page summary.
type Dashboard struct {
	Date     string           `json:"date"`
	Projects []models.Project `json:"projects"`
	Columns  []board.Column   `json:"columns"`
	Week     []DayTasks       `json:"week"`
}

// Agenda is a resolved calendar view with its tasks.
type Agenda struct {
	View   calendar.View `json:"view"`
	Anchor string        `json:"date"`
	Start  string        `json:"start"`
	End    string        `json:"end"`
	Days   []DayTasks    `json:"days"`
	Months []string      `json:"months,omitempty"`
}

// Dashboard collects projects, the board and the Sunday-start week around date.
func (s *Service) Dashboard(ctx context.Context, date time.Time) (Dashboard, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	tasks, err := s.ListTasks(ctx, "")
	if err != nil {
		return Dashboard{}, err
	}
	start := calendar.StartOfWeek(date)
	return Dashboard{
		Date:     date.Format(models.DateLayout),
		Projects: projects,
		Columns:  board.Build(tasks),
		Week:     byDay(calendar.DaysBetween(start, start.AddDate(0, 0, 6)), tasks),
	}, nil
}

// Agenda resolves the navigator's range and attaches the tasks due each day.
func (s *Service) Agenda(ctx context.Context, nav *calendar.Navigator) (Agenda, error) {
	tasks, err := s.ListTasks(ctx, "")
	if err != nil {
		return Agenda{}, err
	}
	start, end := nav.Range()
	a := Agenda{
		View:   nav.View,
		Anchor: nav.Anchor.Format(models.DateLayout),
		Start:  start.Format(models.DateLayout),
		End:    end.Format(models.DateLayout),
		Days:   byDay(nav.Days(), tasks),
	}
	if nav.View == calendar.Quarter {
		for _, m := range nav.Months() {
			a.Months = append(a.Months, m.Format("2006-01"))
		}
	}
	return a, nil
}

func byDay(days []time.Time, tasks []models.Task) []DayTasks {
	due := make(map[string][]models.Task)
	for _, t := range tasks {
		due[t.DueDate] = append(due[t.DueDate], t)
	}
	out := make([]DayTasks, 0, len(days))
	for _, d := range days {
		key := d.Format(models.DateLayout)
		list := due[key]
		if list == nil {
			list = []models.Task{}
		}
		out = append(out, DayTasks{Date: key, Tasks: list})
	}
	return out
}
