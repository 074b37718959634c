package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/devilmonastery/bnetsso/internal/config"
	"github.com/devilmonastery/bnetsso/internal/domain/entities"
	"github.com/devilmonastery/bnetsso/internal/domain/repositories"
	"github.com/devilmonastery/bnetsso/internal/pkg/metrics"
)

// RegistrationService validates and applies the data collected on the
// post-registration interstitial.
type RegistrationService struct {
	users    repositories.UserRepository
	validate *validator.Validate
	minLen   int
	maxLen   int
	log      *slog.Logger
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(users repositories.UserRepository, cfg config.RegistrationConfig) *RegistrationService {
	return &RegistrationService{
		users:    users,
		validate: validator.New(),
		minLen:   cfg.UsernameMinLength,
		maxLen:   cfg.UsernameMaxLength,
		log:      slog.Default().With(slog.String("service", "registration")),
	}
}

// UsernameBounds returns the accepted username length range
func (s *RegistrationService) UsernameBounds() (int, int) {
	return s.minLen, s.maxLen
}

// fieldCheck is the outcome of one concurrent check
type fieldCheck struct {
	format *ValidationError
	taken  *ValidationError
}

// Submit validates input and, when every check passes, writes username and
// email to the pending account. On failure nothing is written.
func (s *RegistrationService) Submit(ctx context.Context, reg *entities.RegistrationContext, in entities.RegistrationInput) (user *entities.User, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("registration", "submit", time.Since(start), err)
		for _, reason := range ValidationReasons(err) {
			metrics.ValidationFailures.WithLabelValues(string(reason)).Inc()
		}
	}()

	if !reg.Pending() {
		return nil, ErrNoPendingRegistration
	}

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	var missing *multierror.Error
	if username == "" {
		missing = multierror.Append(missing, &ValidationError{Reason: ReasonMissingField, Field: "username"})
	}
	if email == "" {
		missing = multierror.Append(missing, &ValidationError{Reason: ReasonMissingField, Field: "email"})
	}
	if missing != nil {
		return nil, missing
	}

	account, err := s.users.GetByID(ctx, reg.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending account: %w", err)
	}

	userslug := Slugify(username)

	var emailCheck, userCheck fieldCheck
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		emailCheck, err = s.checkEmail(gctx, account, email)
		return err
	})
	g.Go(func() error {
		var err error
		userCheck, err = s.checkUsername(gctx, account, username, userslug)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var result *multierror.Error
	for _, ve := range []*ValidationError{emailCheck.format, userCheck.format, userCheck.taken, emailCheck.taken} {
		if ve != nil {
			result = multierror.Append(result, ve)
		}
	}
	if result != nil {
		s.log.Info("registration rejected",
			slog.String("user_id", reg.UserID),
			slog.String("error", result.Error()))
		return nil, result
	}

	if err := s.users.SetUsernameAndEmail(ctx, account.ID, username, userslug, email); err != nil {
		if errors.Is(err, repositories.ErrDuplicateUser) {
			return nil, s.raceConflict(ctx, userslug)
		}
		return nil, fmt.Errorf("failed to save registration: %w", err)
	}

	account.Username = username
	account.UserSlug = userslug
	account.Email = email

	s.log.Info("registration completed",
		slog.String("user_id", account.ID),
		slog.String("userslug", userslug))
	return account, nil
}

// checkEmail validates format then uniqueness
func (s *RegistrationService) checkEmail(ctx context.Context, account *entities.User, email string) (fieldCheck, error) {
	if err := s.validate.Var(email, "email"); err != nil {
		return fieldCheck{format: &ValidationError{Reason: ReasonInvalidEmail, Field: "email"}}, nil
	}
	if strings.EqualFold(email, account.Email) {
		return fieldCheck{}, nil
	}

	available, err := s.users.EmailAvailable(ctx, email)
	if err != nil {
		return fieldCheck{}, fmt.Errorf("failed to check email availability: %w", err)
	}
	if !available {
		return fieldCheck{taken: &ValidationError{Reason: ReasonEmailTaken, Field: "email"}}, nil
	}
	return fieldCheck{}, nil
}

// checkUsername validates length and characters, then slug uniqueness.
// The account's own current slug is not considered taken.
func (s *RegistrationService) checkUsername(ctx context.Context, account *entities.User, username, userslug string) (fieldCheck, error) {
	n := utf8.RuneCountInString(username)
	switch {
	case n < s.minLen:
		return fieldCheck{format: &ValidationError{Reason: ReasonUsernameTooShort, Field: "username"}}, nil
	case n > s.maxLen:
		return fieldCheck{format: &ValidationError{Reason: ReasonUsernameTooLong, Field: "username"}}, nil
	case !validUsernameChars(username) || userslug == "":
		return fieldCheck{format: &ValidationError{Reason: ReasonUsernameInvalid, Field: "username"}}, nil
	}

	if userslug == account.UserSlug {
		return fieldCheck{}, nil
	}
	// placeholder names belong to provisioning
	if isPlaceholderSlug(userslug) {
		return fieldCheck{taken: &ValidationError{Reason: ReasonUsernameTaken, Field: "username"}}, nil
	}

	exists, err := s.users.ExistsBySlug(ctx, userslug)
	if err != nil {
		return fieldCheck{}, fmt.Errorf("failed to check username availability: %w", err)
	}
	if exists {
		return fieldCheck{taken: &ValidationError{Reason: ReasonUsernameTaken, Field: "username"}}, nil
	}
	return fieldCheck{}, nil
}

// raceConflict reports which field another account claimed between the
// checks and the write.
func (s *RegistrationService) raceConflict(ctx context.Context, userslug string) error {
	if exists, err := s.users.ExistsBySlug(ctx, userslug); err == nil && exists {
		return multierror.Append(nil, &ValidationError{Reason: ReasonUsernameTaken, Field: "username"})
	}
	return multierror.Append(nil, &ValidationError{Reason: ReasonEmailTaken, Field: "email"})
}
