package repositories

import "errors"

// Domain-specific repository errors
var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUser is returned when a unique account attribute (userslug, email) is already taken
	ErrDuplicateUser = errors.New("user already exists")
)
