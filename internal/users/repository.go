// Package users is the user directory: accounts, password checks and the
// per-user settings profile.
package users

import (
	"context"

	"planner/internal/models"
)

// Repository persists directory entries. Implementations return
// common.ErrNotFound for unknown ids or usernames and
// common.ErrDuplicateUsername when a username is taken.
type Repository interface {
	CreateUser(ctx context.Context, u models.User) error
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, u models.User) error
	DeleteUser(ctx context.Context, id string) error
}

// ProfileRepository persists settings profiles keyed by user id.
type ProfileRepository interface {
	// GetProfile returns common.ErrNotFound when the user never saved one.
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	SaveProfile(ctx context.Context, p models.Profile) error
}
