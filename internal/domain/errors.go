package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrListingNotFound       = errors.New("listing not found")
	ErrMessageNotFound       = errors.New("message not found")
	ErrFavoriteNotFound      = errors.New("favorite not found")
	ErrRecipientNotFound     = errors.New("recipient not found")
	ErrEmailTaken            = errors.New("email already registered")
	ErrEmailDomainNotAllowed = errors.New("email domain not allowed")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrUnauthenticated       = errors.New("authentication required")
	ErrForbidden             = errors.New("forbidden")
)

// ValidationError reports malformed or missing form input. Err optionally
// carries a sentinel such as ErrEmailDomainNotAllowed.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
