package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"planner/internal/common"
	"planner/internal/models"
)

const userColumns = `id, username, password_hash, is_admin, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	return u, err
}

// CreateUser inserts a directory entry.
func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users(id, username, password_hash, is_admin, created_at) VALUES(?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.IsAdmin, u.CreatedAt)
	if isUniqueViolation(err) {
		return common.ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID fetches a user by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, common.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByUsername fetches a user by exact username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, common.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers returns every user in creation order.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser overwrites username, hash and admin flag.
func (s *Store) UpdateUser(ctx context.Context, u models.User) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET username = ?, password_hash = ?, is_admin = ? WHERE id = ?`,
		u.Username, u.PasswordHash, u.IsAdmin, u.ID)
	if isUniqueViolation(err) {
		return common.ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return checkAffected(res)
}

// DeleteUser removes a user; the profile is dropped by cascade.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return checkAffected(res)
}

// GetProfile returns the saved settings of a user.
func (s *Store) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	p := models.Profile{UserID: userID}
	err := s.db.QueryRowContext(ctx, `SELECT first_name, last_name, email, slack_name, linkedin_url, github_url,
        profile_picture, picture_key, bio, updated_at FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.FirstName, &p.LastName, &p.Email, &p.SlackName, &p.LinkedinURL, &p.GithubURL,
			&p.ProfilePicture, &p.PictureKey, &p.Bio, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, common.ErrNotFound
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// SaveProfile inserts or replaces a user's settings.
func (s *Store) SaveProfile(ctx context.Context, p models.Profile) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO profiles(user_id, first_name, last_name, email, slack_name,
            linkedin_url, github_url, profile_picture, picture_key, bio, updated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET
            first_name = excluded.first_name,
            last_name = excluded.last_name,
            email = excluded.email,
            slack_name = excluded.slack_name,
            linkedin_url = excluded.linkedin_url,
            github_url = excluded.github_url,
            profile_picture = excluded.profile_picture,
            picture_key = excluded.picture_key,
            bio = excluded.bio,
            updated_at = excluded.updated_at`,
		p.UserID, p.FirstName, p.LastName, p.Email, p.SlackName,
		p.LinkedinURL, p.GithubURL, p.ProfilePicture, p.PictureKey, p.Bio, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
