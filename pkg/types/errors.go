package types

import (
	"errors"
	"fmt"
)

// Operation errors. Every error returned by a Provider operation matches
// exactly one of these with errors.Is.
var (
	ErrInvalidLocator       = errors.New("invalid locator")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrStorage              = errors.New("storage error")
	ErrMigration            = errors.New("migration error")
)

// Provider lifecycle errors.
var (
	ErrDetached        = errors.New("provider is detached")
	ErrAlreadyAttached = errors.New("provider is already attached")
)

// OpError records the operation and locator that failed alongside the
// underlying error.
type OpError struct {
	Op      string
	Locator string
	Err     error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Locator == "" {
		return fmt.Sprintf("notepad: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("notepad: %s %q: %v", e.Op, e.Locator, e.Err)
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// MigrationError reports a schema step that could not be applied. From is
// the stored version the step started at and To the version it targeted.
type MigrationError struct {
	From int
	To   int
	Err  error
}

func (e *MigrationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("notepad: migrate schema v%d -> v%d: %v", e.From, e.To, e.Err)
}

// Unwrap exposes both ErrMigration and the cause.
func (e *MigrationError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return []error{ErrMigration, e.Err}
}

// StorageFailure wraps a driver error so that it matches ErrStorage while
// keeping the cause reachable.
func StorageFailure(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// IsUserError reports whether err stems from caller input rather than the
// store itself.
func IsUserError(err error) bool {
	return errors.Is(err, ErrInvalidLocator) ||
		errors.Is(err, ErrUnsupportedOperation) ||
		errors.Is(err, ErrInvalidArgument)
}
