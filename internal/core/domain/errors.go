package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrListingNotFound    = errors.New("listing not found")
	ErrDuplicateListing   = errors.New("listing already exists")
	ErrImportInProgress   = errors.New("import already in progress")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access forbidden")
)

// ValidationError describes input that was rejected before any write.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Msg string
}

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
