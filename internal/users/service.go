package users

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"planner/internal/blob"
	"planner/internal/common"
	"planner/internal/models"
)

// SeedUser is a directory entry created on first start.
type SeedUser struct {
	ID       string
	Username string
	Password string
	IsAdmin  bool
}

// DefaultSeed is the directory every fresh install starts with.
var DefaultSeed = []SeedUser{
	{ID: "1", Username: "admin", Password: "admin123", IsAdmin: true},
	{ID: "2", Username: "user", Password: "user123", IsAdmin: false},
}

// Session is the result of a session check.
type Session struct {
	Authenticated bool `json:"authenticated"`
	IsAdmin       bool `json:"isAdmin"`
}

// Service implements the directory operations on top of a Repository.
type Service struct {
	repo     Repository
	profiles ProfileRepository
	blobs    blob.Store
	cost     int
	logger   *slog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService wires the directory. blobs may be nil when picture uploads are
// not needed.
func NewService(repo Repository, profiles ProfileRepository, blobs blob.Store, cost int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		repo:     repo,
		profiles: profiles,
		blobs:    blobs,
		cost:     cost,
		logger:   logger,
		now:      time.Now,
	}
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// ErrPasswordTooLong reports a password bcrypt cannot hash.
var ErrPasswordTooLong = fmt.Errorf("%w: password must be at most %d bytes", common.ErrValidation, MaxPasswordBytes)

func checkPassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password must not be empty", common.ErrValidation)
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

func (s *Service) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// burnCompare runs one bcrypt comparison against a throwaway hash so that an
// unknown username costs the same as a wrong password.
func (s *Service) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("planner-dummy-password"), s.cost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}

func newUserID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate user id: %w", err)
	}
	return id.String(), nil
}

// Register creates a non-admin account.
func (s *Service) Register(ctx context.Context, username, password string) (models.PublicUser, error) {
	return s.Create(ctx, username, password, false)
}

// Create adds an account with the given admin flag.
func (s *Service) Create(ctx context.Context, username, password string, isAdmin bool) (models.PublicUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.PublicUser{}, fmt.Errorf("%w: username and password are required", common.ErrValidation)
	}
	if err := checkPassword(password); err != nil {
		return models.PublicUser{}, err
	}
	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return models.PublicUser{}, common.ErrDuplicateUsername
	} else if !errors.Is(err, common.ErrNotFound) {
		return models.PublicUser{}, err
	}

	id, err := newUserID()
	if err != nil {
		return models.PublicUser{}, err
	}
	hash, err := s.hash(password)
	if err != nil {
		return models.PublicUser{}, err
	}
	u := models.User{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return models.PublicUser{}, err
	}
	s.logger.Info("user created", slog.String("id", u.ID), slog.String("username", u.Username), slog.Bool("admin", isAdmin))
	return u.Public(), nil
}

// Login checks credentials. Unknown user and wrong password both yield
// common.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (models.PublicUser, error) {
	u, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, common.ErrNotFound) {
		s.burnCompare(password)
		return models.PublicUser{}, common.ErrInvalidCredentials
	}
	if err != nil {
		return models.PublicUser{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.PublicUser{}, common.ErrInvalidCredentials
	}
	return u.Public(), nil
}

// CheckSession resolves a session identity against the current directory.
func (s *Service) CheckSession(ctx context.Context, userID string) (Session, error) {
	if userID == "" {
		return Session{}, nil
	}
	u, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, err
	}
	return Session{Authenticated: true, IsAdmin: u.IsAdmin}, nil
}

// Get returns the public view of one user.
func (s *Service) Get(ctx context.Context, id string) (models.PublicUser, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return models.PublicUser{}, err
	}
	return u.Public(), nil
}

// List returns every user without credentials.
func (s *Service) List(ctx context.Context) ([]models.PublicUser, error) {
	all, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicUser, 0, len(all))
	for _, u := range all {
		out = append(out, u.Public())
	}
	return out, nil
}

// Update applies a partial change. A new password is re-hashed.
func (s *Service) Update(ctx context.Context, id string, upd models.UserUpdate) (models.PublicUser, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return models.PublicUser{}, err
	}
	if upd.Username != nil {
		name := strings.TrimSpace(*upd.Username)
		if name == "" {
			return models.PublicUser{}, fmt.Errorf("%w: username must not be empty", common.ErrValidation)
		}
		u.Username = name
	}
	if upd.Password != nil {
		if err := checkPassword(*upd.Password); err != nil {
			return models.PublicUser{}, err
		}
		if u.PasswordHash, err = s.hash(*upd.Password); err != nil {
			return models.PublicUser{}, err
		}
	}
	if upd.IsAdmin != nil {
		u.IsAdmin = *upd.IsAdmin
	}
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return models.PublicUser{}, err
	}
	return u.Public(), nil
}

// Delete removes a user. Unknown ids report common.ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.String("id", id))
	return nil
}

// Seed inserts the given users, skipping usernames or ids already present.
// It returns how many were created.
func (s *Service) Seed(ctx context.Context, seeds []SeedUser) (int, error) {
	created := 0
	for _, seed := range seeds {
		if _, err := s.repo.GetUserByUsername(ctx, seed.Username); err == nil {
			continue
		} else if !errors.Is(err, common.ErrNotFound) {
			return created, err
		}
		if _, err := s.repo.GetUserByID(ctx, seed.ID); err == nil {
			continue
		}
		hash, err := s.hash(seed.Password)
		if err != nil {
			return created, err
		}
		err = s.repo.CreateUser(ctx, models.User{
			ID:           seed.ID,
			Username:     seed.Username,
			PasswordHash: hash,
			IsAdmin:      seed.IsAdmin,
			CreatedAt:    s.now().UTC(),
		})
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", seed.Username, err)
		}
		created++
	}
	if created > 0 {
		s.logger.Info("seeded user directory", slog.Int("created", created))
	}
	return created, nil
}

// Profile returns the user's settings, empty when never saved.
func (s *Service) Profile(ctx context.Context, userID string) (models.Profile, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return models.Profile{}, err
	}
	p, err := s.profiles.GetProfile(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return models.Profile{UserID: userID}, nil
	}
	if err != nil {
		return models.Profile{}, err
	}
	return s.resolvePicture(ctx, p), nil
}

// UpdateProfile merges the set fields into the stored profile.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (models.Profile, error) {
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return models.Profile{}, err
	}
	upd.Apply(&p)
	p.UpdatedAt = s.now().UTC()
	if err := s.profiles.SaveProfile(ctx, p); err != nil {
		return models.Profile{}, err
	}
	return s.resolvePicture(ctx, p), nil
}

// SetProfilePicture stores an uploaded image and points the profile at it.
// The previous upload, if any, is removed.
func (s *Service) SetProfilePicture(ctx context.Context, userID, filename string, r io.Reader, size int64, contentType string) (models.Profile, error) {
	if s.blobs == nil {
		return models.Profile{}, errors.New("blob storage not configured")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return models.Profile{}, fmt.Errorf("%w: profile picture must be an image", common.ErrValidation)
	}
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return models.Profile{}, err
	}

	key := fmt.Sprintf("profiles/%s/%s-%s", userID, uuid.NewString(), blob.SafeName(filename))
	if err := s.blobs.Put(ctx, key, r, size, contentType); err != nil {
		return models.Profile{}, err
	}
	previous := p.PictureKey
	p.PictureKey = key
	p.UpdatedAt = s.now().UTC()
	if err := s.profiles.SaveProfile(ctx, p); err != nil {
		_ = s.blobs.Delete(ctx, key)
		return models.Profile{}, err
	}
	if previous != "" {
		if err := s.blobs.Delete(ctx, previous); err != nil {
			s.logger.Warn("remove old profile picture", slog.String("key", previous), slog.String("error", err.Error()))
		}
	}
	return s.resolvePicture(ctx, p), nil
}

func (s *Service) resolvePicture(ctx context.Context, p models.Profile) models.Profile {
	if p.PictureKey == "" || s.blobs == nil {
		return p
	}
	u, err := s.blobs.URL(ctx, p.PictureKey)
	if err != nil {
		s.logger.Warn("resolve profile picture", slog.String("key", p.PictureKey), slog.String("error", err.Error()))
		return p
	}
	p.ProfilePicture = u
	return p
}
