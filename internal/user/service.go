package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxUsernameLength = 150
)

var (
	// ErrInvalidUsername is returned for empty or overlong usernames.
	ErrInvalidUsername = errors.New("username must be 1-150 characters")
	// ErrWeakPassword is returned when the password is too short.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)

// Service manages the users that own wallets.
type Service struct {
	repo Repository
}

// NewService creates a new user service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a user and stores a bcrypt hash of the password.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	username := strings.TrimSpace(reg.Username)
	if username == "" || len(username) > maxUsernameLength {
		return User{}, ErrInvalidUsername
	}
	if len(reg.Password) < minPasswordLength {
		return User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	return s.repo.Create(ctx, User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
}

// Get returns the user with the given id or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// CheckPassword reports whether password matches the stored hash.
func (u User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) == nil
}
