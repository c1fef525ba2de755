package runner

import (
	"errors"
	"fmt"
)

// ErrChecksumMismatch is matched by every ChecksumMismatchError.
var ErrChecksumMismatch = errors.New("migration checksum mismatch")

// ErrExecutionFailed is matched by every MigrationExecutionError.
var ErrExecutionFailed = errors.New("migration execution failed")

// ErrMissingScript indicates an applied version that no longer resolves to a script.
var ErrMissingScript = errors.New("applied migration not found in registry")

// ErrOutOfOrder indicates a pending version lower than the current schema version.
var ErrOutOfOrder = errors.New("pending migration is older than the current version")

// ErrRunnerBusy indicates Migrate was called while another call on the same Runner was in progress.
var ErrRunnerBusy = errors.New("migration runner already running")

// ChecksumMismatchError reports an applied script whose content changed afterwards.
type ChecksumMismatchError struct {
	Version  string
	Script   string
	Recorded string
	Resolved string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("migration %s (%s): %v: recorded=%s resolved=%s",
		e.Version, e.Script, ErrChecksumMismatch, e.Recorded, e.Resolved)
}

func (e *ChecksumMismatchError) Unwrap() error { return ErrChecksumMismatch }

// MigrationExecutionError reports a script whose statements failed; its
// transaction was rolled back and it is not recorded as applied.
type MigrationExecutionError struct {
	Version     string
	Description string
	Err         error
}

func (e *MigrationExecutionError) Error() string {
	return fmt.Sprintf("executing migration %s (%s): %v", e.Version, e.Description, e.Err)
}

// Unwrap exposes both ErrExecutionFailed and the underlying cause to errors.Is.
func (e *MigrationExecutionError) Unwrap() []error {
	return []error{ErrExecutionFailed, e.Err}
}
