package users

import (
	"context"
	"sort"
	"sync"

	"planner/internal/common"
	"planner/internal/models"
)

// MemoryRepository is an in-process Repository and ProfileRepository.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[string]models.User
	profiles map[string]models.Profile
}

// NewMemoryRepository returns an empty directory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[string]models.User),
		profiles: make(map[string]models.Profile),
	}
}

func (m *MemoryRepository) usernameTaken(username, exceptID string) bool {
	for id, u := range m.users {
		if u.Username == username && id != exceptID {
			return true
		}
	}
	return false
}

// CreateUser implements Repository.
func (m *MemoryRepository) CreateUser(_ context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.usernameTaken(u.Username, "") {
		return common.ErrDuplicateUsername
	}
	if _, ok := m.users[u.ID]; ok {
		return common.ErrDuplicateUsername
	}
	m.users[u.ID] = u
	return nil
}

// GetUserByID implements Repository.
func (m *MemoryRepository) GetUserByID(_ context.Context, id string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return models.User{}, common.ErrNotFound
	}
	return u, nil
}

// GetUserByUsername implements Repository.
func (m *MemoryRepository) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, common.ErrNotFound
}

// ListUsers implements Repository, ordered by creation time then id.
func (m *MemoryRepository) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateUser implements Repository.
func (m *MemoryRepository) UpdateUser(_ context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; !ok {
		return common.ErrNotFound
	}
	if m.usernameTaken(u.Username, u.ID) {
		return common.ErrDuplicateUsername
	}
	m.users[u.ID] = u
	return nil
}

// DeleteUser implements Repository. The user's profile goes with it.
func (m *MemoryRepository) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.users, id)
	delete(m.profiles, id)
	return nil
}

// GetProfile implements ProfileRepository.
func (m *MemoryRepository) GetProfile(_ context.Context, userID string) (models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return models.Profile{}, common.ErrNotFound
	}
	return p, nil
}

// SaveProfile implements ProfileRepository.
func (m *MemoryRepository) SaveProfile(_ context.Context, p models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[p.UserID] = p
	return nil
}
