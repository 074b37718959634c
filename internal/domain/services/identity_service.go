package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/devilmonastery/bnetsso/internal/domain/entities"
	"github.com/devilmonastery/bnetsso/internal/domain/repositories"
	"github.com/devilmonastery/bnetsso/internal/pkg/logger"
	"github.com/devilmonastery/bnetsso/internal/pkg/metrics"
)

// Outcome says how a login was resolved to an account
type Outcome string

const (
	// OutcomeExisting means the external identity was already associated
	OutcomeExisting Outcome = "existing"
	// OutcomeNew means a new account was provisioned for the identity
	OutcomeNew Outcome = "new"
	// OutcomeLinked means an authenticated account linked the identity
	OutcomeLinked Outcome = "linked"
)

// Resolution is the result of resolving an external identity
type Resolution struct {
	User    *entities.User
	Outcome Outcome
}

// IsNew reports whether the account was created by this login
func (r *Resolution) IsNew() bool {
	return r != nil && r.Outcome == OutcomeNew
}

const (
	// maxPlaceholderAttempts bounds the suffixed usernames tried when the
	// placeholder is held by another account
	maxPlaceholderAttempts = 5

	provisionTimeout = 15 * time.Second
)

// IdentityService maps Battle.net identities to local accounts
type IdentityService struct {
	users  repositories.UserRepository
	links  repositories.AssociationStore
	flight singleflight.Group
	log    *slog.Logger
}

// NewIdentityService creates a new identity service
func NewIdentityService(users repositories.UserRepository, links repositories.AssociationStore) *IdentityService {
	return &IdentityService{
		users: users,
		links: links,
		log:   slog.Default().With(slog.String("service", "identity")),
	}
}

// Resolve maps profile to exactly one local account. When currentUserID is
// set the identity is linked to that account instead of being looked up.
func (s *IdentityService) Resolve(ctx context.Context, profile *entities.ExternalProfile, currentUserID string) (res *Resolution, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("identity", "resolve", time.Since(start), err)
		outcome := "error"
		if err == nil {
			outcome = string(res.Outcome)
		}
		metrics.LoginOutcomes.WithLabelValues(outcome).Inc()
	}()

	if profile == nil || profile.ExternalID == "" {
		return nil, ErrInvalidProfile
	}

	fields, err := profile.ProviderFields()
	if err != nil {
		return nil, err
	}

	log := logger.WithProvider(s.log, entities.ProviderBattleNet, profile.ExternalID)

	if currentUserID != "" {
		return s.link(ctx, log, currentUserID, fields)
	}

	res, found, err := s.lookup(ctx, log, fields)
	if err != nil || found {
		return res, err
	}

	// joined callers must not fail when the first caller goes away
	v, err, shared := s.flight.Do(profile.ExternalID, func() (any, error) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), provisionTimeout)
		defer cancel()
		return s.provision(pctx, log, fields)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug("concurrent first login collapsed")
	}
	return v.(*Resolution), nil
}

// lookup returns the associated account, refreshed with fields
func (s *IdentityService) lookup(ctx context.Context, log *slog.Logger, fields entities.ProviderFields) (*Resolution, bool, error) {
	userID, found, err := s.links.Get(ctx, fields.BattleNetID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrAssociationStoreFailed, err)
	}
	if !found {
		return nil, false, nil
	}

	user, err := s.refresh(ctx, userID, fields)
	if IsUserNotFound(err) {
		// association outlived its account; provision afresh
		log.Warn("association points to missing account", slog.String("user_id", userID))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	log.Info("battle.net login resolved to existing account", slog.String("user_id", user.ID))
	return &Resolution{User: user, Outcome: OutcomeExisting}, true, nil
}

// refresh overwrites provider fields and reloads the account
func (s *IdentityService) refresh(ctx context.Context, userID string, fields entities.ProviderFields) (*entities.User, error) {
	if err := s.users.SetProviderFields(ctx, userID, fields); err != nil {
		if IsUserNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update provider fields: %w", err)
	}
	return s.users.GetByID(ctx, userID)
}

// provision creates an account and its association. Runs at most once
// per external id at a time.
func (s *IdentityService) provision(ctx context.Context, log *slog.Logger, fields entities.ProviderFields) (*Resolution, error) {
	// another flight may have finished between lookup and here
	if res, found, err := s.lookup(ctx, log, fields); err != nil || found {
		return res, err
	}

	var user *entities.User
	for attempt := 0; user == nil; attempt++ {
		candidate := &entities.User{
			Username: placeholderUsername(fields.BattleNetID, attempt),
			Role:     entities.RoleUser,
		}
		candidate.UserSlug = Slugify(candidate.Username)

		err := s.users.Create(ctx, candidate)
		switch {
		case err == nil:
			user = candidate
		case !errors.Is(err, repositories.ErrDuplicateUser):
			return nil, fmt.Errorf("%w: %w", ErrAccountCreationFailed, err)
		default:
			// another process may have provisioned the same identity
			if res, found, lerr := s.lookup(ctx, log, fields); lerr == nil && found {
				return res, nil
			}
			if attempt+1 >= maxPlaceholderAttempts {
				return nil, fmt.Errorf("%w: %w", ErrAccountCreationFailed, err)
			}
			log.Warn("placeholder username taken, retrying", slog.String("username", candidate.Username))
		}
	}

	if err := s.links.Put(ctx, fields.BattleNetID, user.ID); err != nil {
		if derr := s.users.Delete(ctx, user.ID); derr != nil {
			log.Error("failed to remove account after association failure",
				slog.String("user_id", user.ID),
				slog.String("error", derr.Error()))
		}
		return nil, fmt.Errorf("%w: %w", ErrAssociationStoreFailed, err)
	}

	if err := s.users.SetProviderFields(ctx, user.ID, fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccountCreationFailed, err)
	}
	applyProviderFields(user, fields)

	log.Info("provisioned account for battle.net identity", slog.String("user_id", user.ID))
	return &Resolution{User: user, Outcome: OutcomeNew}, nil
}

// link associates the identity with an authenticated account. The
// association is last-write-wins; a previous owner loses its link.
func (s *IdentityService) link(ctx context.Context, log *slog.Logger, userID string, fields entities.ProviderFields) (*Resolution, error) {
	log = logger.WithUser(log, userID)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", userID, err)
	}

	prevOwner, found, err := s.links.Get(ctx, fields.BattleNetID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssociationStoreFailed, err)
	}

	if err := s.links.Put(ctx, fields.BattleNetID, userID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssociationStoreFailed, err)
	}

	if found && prevOwner != userID {
		log.Warn("battle.net identity moved between accounts", slog.String("previous_user_id", prevOwner))
		if err := s.users.SetProviderFields(ctx, prevOwner, entities.ProviderFields{}); err != nil && !IsUserNotFound(err) {
			log.Error("failed to clear provider fields on previous owner",
				slog.String("previous_user_id", prevOwner),
				slog.String("error", err.Error()))
		}
	}

	if old := user.LinkedBattleNetID(); old != "" && old != fields.BattleNetID {
		if owner, ok, gerr := s.links.Get(ctx, old); gerr == nil && ok && owner == userID {
			if derr := s.links.Delete(ctx, old); derr != nil {
				log.Error("failed to remove superseded association",
					slog.String("old_external_id", old),
					slog.String("error", derr.Error()))
			}
		}
	}

	if err := s.users.SetProviderFields(ctx, userID, fields); err != nil {
		return nil, fmt.Errorf("failed to update provider fields: %w", err)
	}
	applyProviderFields(user, fields)

	log.Info("linked battle.net identity to account")
	return &Resolution{User: user, Outcome: OutcomeLinked}, nil
}

func applyProviderFields(user *entities.User, fields entities.ProviderFields) {
	bnetID, tag := fields.BattleNetID, fields.BattleTag
	user.BattleNetID = &bnetID
	user.BattleTag = &tag
	user.Characters = fields.Characters
}
