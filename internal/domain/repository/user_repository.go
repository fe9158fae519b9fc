package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-auth-guard/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned by Create when the name or email is already taken.
	// Implementations detect it from the store's own unique constraint.
	ErrDuplicate = errors.New("user already exists")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	// Create inserts u and fills in the store-assigned ID and timestamps.
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	FindAll(ctx context.Context) ([]*entity.User, error)
	SetActive(ctx context.Context, id string, active bool) error
	Ping(ctx context.Context) error
}
