package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidKind         = errors.New("kind must be income or expense")
	ErrEmptyCategory       = errors.New("empty category")
	ErrCategoryNameTooLong = errors.New("category name too long (max 50 characters)")
	ErrUnknownCategory     = errors.New("unknown category")
	ErrDuplicateCategory   = errors.New("category already exists")
	ErrCategoryInUse       = errors.New("category is used by existing entries")
	ErrNoteTooLong         = errors.New("note too long (max 200 characters)")
	ErrNotFound            = errors.New("not found")
)

// ValidationError reports user input that was rejected. The store is left
// unchanged whenever one is returned.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports an update, delete or lookup of a missing record.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// Is makes errors.Is(err, ErrNotFound) match any NotFoundError.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
