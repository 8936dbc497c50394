package directory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrSlackUserNotFound = errors.New("slack user not found")
	ErrProjectNotFound   = errors.New("project not found")

	// ErrEmailTaken is returned when an email (and so a user name) is
	// already registered to a different user.
	ErrEmailTaken = errors.New("email already registered")

	// ErrSlackUserNameTaken is returned when adding or updating a user with
	// a slack user name owned by someone else.
	ErrSlackUserNameTaken = errors.New("slack user name already in use")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// LookupError records which key a failed lookup used.
type LookupError struct {
	Field string // "id", "email", "slack_user_id", ...
	Value string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%v (%s=%s)", e.Err, e.Field, e.Value)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// NotFound builds a LookupError around one of the not-found sentinels.
func NotFound(sentinel error, field, value string) error {
	return &LookupError{Field: field, Value: value, Err: sentinel}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrSlackUserNotFound) ||
		errors.Is(err, ErrProjectNotFound)
}

// IsConflict returns true if the error is a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrSlackUserNameTaken)
}
