package migration

import (
	"errors"
	"fmt"
)

// ErrRegistry is matched by every RegistryError.
var ErrRegistry = errors.New("invalid migration registry")

// ErrInvalidVersion indicates a version token that cannot be parsed.
var ErrInvalidVersion = errors.New("invalid migration version")

// ErrDuplicateVersion indicates two scripts resolve to the same version.
var ErrDuplicateVersion = errors.New("duplicate migration version")

// ErrInvalidSQL indicates a script body that the PostgreSQL parser rejects.
var ErrInvalidSQL = errors.New("invalid migration SQL")

// RegistryError reports a script that prevents the registry from being listed.
type RegistryError struct {
	Filename string
	Err      error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("migration registry: %s: %v", e.Filename, e.Err)
}

// Unwrap exposes both ErrRegistry and the underlying cause to errors.Is.
func (e *RegistryError) Unwrap() []error {
	return []error{ErrRegistry, e.Err}
}
