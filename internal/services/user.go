package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskdeck/apiserver/internal/store"
	"github.com/taskdeck/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrDuplicateUser is returned when the username is already taken.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidCredentials is returned for both an unknown username and a
	// wrong password, so callers cannot probe which usernames exist.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates registration and credential verification.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Register hashes the password and persists a new user with role "user".
// Duplicate usernames are rejected by the unique index, not by a lookup, so
// two concurrent registrations cannot both succeed.
func (s *UserService) Register(ctx context.Context, username, password string) (types.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Role:         types.RoleUser,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrDuplicateUser
		}
		return types.User{}, err
	}
	return user, nil
}

// Authenticate verifies the username/password pair and returns the user.
// Unknown usernames and wrong passwords produce the same error.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if !verifyPassword(password, user.PasswordHash) {
		return types.User{}, ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword reports whether password matches the stored bcrypt hash.
// A malformed hash verifies as false rather than erroring.
func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
