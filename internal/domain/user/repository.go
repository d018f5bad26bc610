package user

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when no user matches a lookup.
var ErrUserNotFound = errors.New("user not found")

// UserRepository is the persistence boundary for user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByPhone(ctx context.Context, phone string) (*User, error)
}
