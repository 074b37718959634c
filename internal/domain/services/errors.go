package services

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/devilmonastery/bnetsso/internal/domain/repositories"
)

var (
	// ErrAccountCreationFailed is returned when a new local account cannot be provisioned
	ErrAccountCreationFailed = errors.New("account creation failed")

	// ErrAssociationStoreFailed is returned when the association store cannot be read or written
	ErrAssociationStoreFailed = errors.New("association store failed")

	// ErrValidationFailed matches every *ValidationError
	ErrValidationFailed = errors.New("validation failed")

	// ErrInvalidProfile is returned for a profile without an external id
	ErrInvalidProfile = errors.New("external profile has no id")

	// ErrNoPendingRegistration is returned when submitting without a registration context
	ErrNoPendingRegistration = errors.New("no pending registration")
)

// ValidationReason identifies why a registration field was rejected
type ValidationReason string

const (
	ReasonMissingField     ValidationReason = "missing-field"
	ReasonInvalidEmail     ValidationReason = "invalid-email"
	ReasonUsernameTooShort ValidationReason = "username-too-short"
	ReasonUsernameTooLong  ValidationReason = "username-too-long"
	ReasonUsernameInvalid  ValidationReason = "invalid-username"
	ReasonUsernameTaken    ValidationReason = "username-taken"
	ReasonEmailTaken       ValidationReason = "email-taken"
)

// ValidationError is one rejected field
type ValidationError struct {
	Reason ValidationReason
	Field  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes every ValidationError match ErrValidationFailed
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// ValidationReasons lists the reasons carried by err, in order.
func ValidationReasons(err error) []ValidationReason {
	var reasons []ValidationReason
	for _, ve := range ValidationErrors(err) {
		reasons = append(reasons, ve.Reason)
	}
	return reasons
}

// ValidationErrors returns the individual field errors carried by err
func ValidationErrors(err error) []*ValidationError {
	var out []*ValidationError
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			var ve *ValidationError
			if errors.As(e, &ve) {
				out = append(out, ve)
			}
		}
		return out
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		out = append(out, ve)
	}
	return out
}

// IsUserNotFound checks if the error indicates user not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, repositories.ErrUserNotFound)
}

// IsValidationFailure checks if the error is a registration validation failure
func IsValidationFailure(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}
