package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)

	ErrAliasLibraryConflict = errors.New("alias library conflict")
	ErrUnknownField         = errors.New("unknown canonical field")
	ErrInvalidPolicy        = errors.New("invalid duplicate policy")
)

// NewNotFoundError reports a missing resource by id
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// IsNotFoundError reports whether err is any not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
