package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/devilmonastery/bnetsso/internal/domain/entities"
	"github.com/devilmonastery/bnetsso/internal/domain/repositories"
	"github.com/devilmonastery/bnetsso/internal/pkg/metrics"
)

// AccountService answers association queries and handles account deletion
type AccountService struct {
	users repositories.UserRepository
	links repositories.AssociationStore
	log   *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(users repositories.UserRepository, links repositories.AssociationStore) *AccountService {
	return &AccountService{
		users: users,
		links: links,
		log:   slog.Default().With(slog.String("service", "account")),
	}
}

// GetUser loads an account
func (s *AccountService) GetUser(ctx context.Context, userID string) (*entities.User, error) {
	return s.users.GetByID(ctx, userID)
}

// IsLinked reports whether the account has a Battle.net identity
func (s *AccountService) IsLinked(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.LinkedBattleNetID() != "", nil
}

// CleanupAssociation removes the account's association, if it still owns
// one. Missing accounts and absent associations are not errors.
func (s *AccountService) CleanupAssociation(ctx context.Context, userID string) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("account", "cleanup_association", time.Since(start), err)
	}()

	user, err := s.users.GetByID(ctx, userID)
	if IsUserNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	bnetID := user.LinkedBattleNetID()
	if bnetID == "" {
		return nil
	}

	owner, found, err := s.links.Get(ctx, bnetID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAssociationStoreFailed, err)
	}
	if !found || owner != userID {
		return nil
	}

	if err := s.links.Delete(ctx, bnetID); err != nil {
		return fmt.Errorf("%w: %w", ErrAssociationStoreFailed, err)
	}

	s.log.Info("removed battle.net association",
		slog.String("user_id", userID),
		slog.String("external_id", bnetID))
	return nil
}

// DeleteAccount removes the association and then the account. An
// association cleanup failure is logged and returned, but the account is
// still deleted.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	cleanupErr := s.CleanupAssociation(ctx, userID)
	if cleanupErr != nil {
		s.log.Error("association cleanup failed",
			slog.String("user_id", userID),
			slog.String("error", cleanupErr.Error()))
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return cleanupErr
}

// SetRole changes an account's role
func (s *AccountService) SetRole(ctx context.Context, userID string, role entities.Role) error {
	return s.users.SetRole(ctx, userID, role)
}
