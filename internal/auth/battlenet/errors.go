package battlenet

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingConfiguration means key, secret, region or domain is unset
	ErrMissingConfiguration = errors.New("battle.net provider is not configured")

	// ErrTokenExchangeFailed is returned when the authorization code cannot be exchanged
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	// ErrProfileFetchFailed tags failures of the account profile request
	ErrProfileFetchFailed = errors.New("profile fetch failed")

	// ErrCharacterFetchFailed tags failures of the character list request
	ErrCharacterFetchFailed = errors.New("character fetch failed")

	// ErrNetworkFailure covers transport errors, timeouts and non-2xx statuses
	ErrNetworkFailure = errors.New("network failure")

	// ErrMalformedResponse covers bodies that are not the expected JSON
	ErrMalformedResponse = errors.New("malformed response")
)

// FetchError records which sub-fetch failed and why.
// errors.Is matches the stage, the cause and the underlying error.
type FetchError struct {
	Stage error // ErrProfileFetchFailed or ErrCharacterFetchFailed
	Cause error // ErrNetworkFailure or ErrMalformedResponse
	Err   error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("%v: %v: %v", e.Stage, e.Cause, e.Err)
}

func (e *FetchError) Unwrap() []error {
	errs := []error{e.Stage, e.Cause}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// StatusError is a non-2xx response from Battle.net
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}
