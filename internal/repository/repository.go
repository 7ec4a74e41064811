package repository

import (
	"context"

	"github.com/sakif/tastegate/internal/model"
)

// UserRepository is the durable account store behind the registry.
//
// Implementations must serialize writes: two registrations racing on the
// same email must resolve to exactly one created account, with the loser
// receiving apperror.ErrConflict.
type UserRepository interface {
	// Create inserts a new account. Fails with apperror.ErrConflict if an
	// account with the same email already exists.
	Create(ctx context.Context, user *model.User) error
	// GetByEmail returns the account for the given email, or
	// apperror.ErrNotFound. Login is the only lookup the registry needs:
	// after that, identity travels in the session token.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Delete removes an account. Used to roll back a registration whose
	// upstream context creation failed. Deleting a missing account is not
	// an error.
	Delete(ctx context.Context, id string) error
}
