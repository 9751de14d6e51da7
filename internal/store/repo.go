package store

import (
	"context"
	"errors"

	"github.com/AlekseyNushtaev/Test-Namaz/internal/domain"
)

// ErrNotFound is returned when no user row matches the chat ID.
var ErrNotFound = errors.New("user not found")

// Repo defines storage operations for users and their prayer schedule.
type Repo interface {
	// CreateUser inserts u unless a row for u.ChatID exists; created reports which happened.
	CreateUser(ctx context.Context, u *domain.User) (created bool, err error)
	GetUser(ctx context.Context, chatID int64) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	// UpdateUser applies upd to one row in a single statement.
	UpdateUser(ctx context.Context, chatID int64, upd domain.UserUpdate) error
	Close() error
}
