package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"planner/internal/storage/sqlite"
	"planner/internal/users"
)

// UserAddOptions holds flags for the user add command.
type UserAddOptions struct {
	*RootOptions
	Password string
	Admin    bool
}

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserAddCommand(rootOpts))
	return cmd
}

func newUserAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UserAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Example: `  planner user add alice --password s3cret
  planner user add root --password s3cret --admin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Password == "" {
				return errors.New("--password is required")
			}
			cfg := opts.Config
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			store, err := sqlite.Open(cmd.Context(), cfg.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := users.NewService(store, store, nil, cfg.BcryptCost, logger)
			user, err := svc.Create(cmd.Context(), args[0], opts.Password, opts.Admin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %s, admin %t)\n", user.Username, user.ID, user.IsAdmin)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "password for the new account")
	cmd.Flags().BoolVar(&opts.Admin, "admin", false, "grant admin rights")

	return cmd
}
