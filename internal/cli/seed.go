package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"planner/internal/models"
	"planner/internal/planner"
	"planner/internal/storage/sqlite"
	"planner/internal/users"
)

type demoTask struct {
	title   string
	status  models.TaskStatus
	dueDays int
}

type demoProject struct {
	name     string
	progress int
	tasks    []demoTask
}

// demoData is the sample workspace loaded by "planner seed".
var demoData = []demoProject{
	{name: "Website Redesign", progress: 65, tasks: []demoTask{
		{title: "Design UI mockups", status: models.StatusInProgress, dueDays: 2},
		{title: "Implement authentication", status: models.StatusTodo, dueDays: 7},
	}},
	{name: "Mobile App", progress: 30, tasks: []demoTask{
		{title: "Write API documentation", status: models.StatusDone, dueDays: -3},
	}},
	{name: "Backend Services", progress: 80, tasks: []demoTask{
		{title: "Set up CI/CD pipeline", status: models.StatusInProgress, dueDays: 5},
	}},
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the default users and a demo workspace",
		Long: `Create the default admin and user accounts and, when the database holds
no projects yet, a small demo workspace with due dates around today.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			store, err := sqlite.Open(cmd.Context(), cfg.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			created, err := users.NewService(store, store, nil, cfg.BcryptCost, logger).Seed(cmd.Context(), users.DefaultSeed)
			if err != nil {
				return err
			}
			projects, tasks, err := seedWorkspace(cmd.Context(), planner.NewService(store, nil, logger), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d projects, %d tasks\n", created, projects, tasks)
			return nil
		},
	}
}

// seedWorkspace loads demoData unless projects already exist.
func seedWorkspace(ctx context.Context, svc *planner.Service, now time.Time) (int, int, error) {
	existing, err := svc.ListProjects(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(existing) > 0 {
		return 0, 0, nil
	}

	var projects, tasks int
	for _, dp := range demoData {
		p, err := svc.CreateProject(ctx, dp.name)
		if err != nil {
			return projects, tasks, err
		}
		progress := dp.progress
		if _, err := svc.UpdateProject(ctx, p.ID, planner.ProjectUpdate{Progress: &progress}); err != nil {
			return projects, tasks, err
		}
		projects++

		for _, dt := range dp.tasks {
			_, err := svc.CreateTask(ctx, planner.TaskInput{
				Title:     dt.title,
				Status:    string(dt.status),
				DueDate:   now.AddDate(0, 0, dt.dueDays).Format(models.DateLayout),
				ProjectID: p.ID,
			})
			if err != nil {
				return projects, tasks, err
			}
			tasks++
		}
	}
	return projects, tasks, nil
}
