package repository

import (
	"context"
	"errors"

	"github.com/YuriFontella/strawberry-auth/internal/user/domain"
)

// Conflict sentinels mapped from Postgres unique violations.
var (
	ErrDuplicateEmail       = errors.New("email is already registered")
	ErrDuplicateFingerprint = errors.New("fingerprint is already taken")
)

// Repository defines persistence for users.
type Repository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}
