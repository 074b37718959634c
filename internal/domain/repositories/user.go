package repositories

import (
	"context"

	"github.com/devilmonastery/bnetsso/internal/domain/entities"
)

// UserRepository defines the interface for local account data access
type UserRepository interface {
	// Create a new account. Returns ErrDuplicateUser when the userslug is taken.
	Create(ctx context.Context, user *entities.User) error

	// GetByID retrieves an account by its ID
	GetByID(ctx context.Context, id string) (*entities.User, error)

	// Delete removes an account
	Delete(ctx context.Context, id string) error

	// SetProviderFields overwrites battlenet_id, battletag and characters
	SetProviderFields(ctx context.Context, id string, fields entities.ProviderFields) error

	// SetUsernameAndEmail writes username, userslug and email in one update.
	// Returns ErrDuplicateUser if another account claimed the slug or email.
	SetUsernameAndEmail(ctx context.Context, id, username, userslug, email string) error

	// SetRole changes an account's role
	SetRole(ctx context.Context, id string, role entities.Role) error

	// ExistsBySlug checks if any account uses the userslug
	ExistsBySlug(ctx context.Context, userslug string) (bool, error)

	// EmailAvailable reports whether no account uses the email (case-insensitive)
	EmailAvailable(ctx context.Context, email string) (bool, error)
}
