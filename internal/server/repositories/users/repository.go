// Package users declares the user store contract and its PostgreSQL
// implementation.
package users

//go:generate mockgen -source=repository.go -destination=../../../mocks/users_repository_mock.go -package=mocks -mock_names=Repository=MockUsersRepository

import (
	"context"

	"github.com/dmitrijs2005/idkeeper/internal/server/models"
)

// Repository persists identities. Lookups return common.ErrorNotFound when
// the row is absent; writes return common.ErrConflict on a duplicate
// username or email and when a compare-and-swap precondition does not hold.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)

	// Update writes profile fields and roles. Credentials and the reset
	// pointer are left alone.
	Update(ctx context.Context, user *models.User) error
	// UpdatePassword stores a new hash and salt and drops any outstanding
	// reset pointer.
	UpdatePassword(ctx context.Context, id string, hash, salt []byte) error

	// SetResetToken replaces the reset pointer only if it still equals expected.
	SetResetToken(ctx context.Context, id, expected, next string) error
	// ResetPassword stores a new hash and salt and clears the reset pointer,
	// only if the pointer still equals expected.
	ResetPassword(ctx context.Context, id, expected string, hash, salt []byte) error

	Delete(ctx context.Context, username string) error
}
